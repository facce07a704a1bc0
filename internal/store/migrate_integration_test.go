// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package store_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = migrator.Close() })
	})

	It("starts at version 0 with every migration pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1, 2}))
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("treats a second Up as a no-op", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())

		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})

	It("forces a version without running migrations", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Force(1)).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Force(2)).To(Succeed())
	})
})

var _ = Describe("Connect", func() {
	It("returns a pool that answers pings", func() {
		pool, err := store.Connect(suiteCtx, databaseURL, 10*time.Second)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		Expect(pool.Ping(suiteCtx)).To(Succeed())
	})
})
