// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	suiteCtx    context.Context
	pgContainer *postgres.PostgresContainer
	databaseURL string
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = BeforeSuite(func() {
	suiteCtx = context.Background()

	var err error
	pgContainer, err = postgres.Run(suiteCtx,
		"postgres:18-alpine",
		postgres.WithDatabase("gatehouse_test"),
		postgres.WithUsername("gatehouse"),
		postgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	Expect(err).NotTo(HaveOccurred())

	databaseURL, err = pgContainer.ConnectionString(suiteCtx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pgContainer != nil {
		_ = pgContainer.Terminate(suiteCtx)
	}
})
