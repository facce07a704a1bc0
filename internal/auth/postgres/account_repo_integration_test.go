// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package postgres_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
)

var _ = Describe("AccountRepository", func() {
	var repo *postgres.AccountRepository

	BeforeEach(func() {
		truncateAccounts()
		repo = postgres.NewAccountRepository(pool)
	})

	newAccount := func(email string) *auth.Account {
		now := time.Now().UTC()
		return &auth.Account{
			ID:           ulid.Make(),
			Name:         "juanito perez",
			Email:        email,
			PasswordHash: "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	Describe("Create", func() {
		It("round-trips through GetByID and GetByEmail", func() {
			account := newAccount("example@domain.com")
			Expect(repo.Create(suiteCtx, account)).To(Succeed())

			byID, err := repo.GetByID(suiteCtx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal("example@domain.com"))
			Expect(byID.LastLoginAt).To(BeNil())
			Expect(byID.CreatedAt).To(BeTemporally("~", account.CreatedAt, time.Millisecond))

			byEmail, err := repo.GetByEmail(suiteCtx, "example@domain.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(account.ID))
		})

		It("rejects a duplicate email with ErrEmailTaken", func() {
			Expect(repo.Create(suiteCtx, newAccount("dup@domain.com"))).To(Succeed())

			err := repo.Create(suiteCtx, newAccount("dup@domain.com"))
			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})
	})

	Describe("lookups", func() {
		It("reports unknown accounts as ErrNotFound", func() {
			_, err := repo.GetByID(suiteCtx, ulid.Make())
			Expect(err).To(MatchError(auth.ErrNotFound))

			_, err = repo.GetByEmail(suiteCtx, "nobody@domain.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("RecordLogin", func() {
		It("stores the login time", func() {
			account := newAccount("login@domain.com")
			Expect(repo.Create(suiteCtx, account)).To(Succeed())

			at := time.Now().UTC().Add(time.Minute)
			Expect(repo.RecordLogin(suiteCtx, account.ID, at)).To(Succeed())

			stored, err := repo.GetByID(suiteCtx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.LastLoginAt).NotTo(BeNil())
			Expect(*stored.LastLoginAt).To(BeTemporally("~", at, time.Millisecond))
		})

		It("fails for an unknown account", func() {
			err := repo.RecordLogin(suiteCtx, ulid.Make(), time.Now())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("SetAdmin", func() {
		It("promotes and demotes", func() {
			account := newAccount("admin@domain.com")
			Expect(repo.Create(suiteCtx, account)).To(Succeed())

			Expect(repo.SetAdmin(suiteCtx, account.ID, true)).To(Succeed())
			stored, err := repo.GetByID(suiteCtx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.IsAdmin).To(BeTrue())

			Expect(repo.SetAdmin(suiteCtx, account.ID, false)).To(Succeed())
			stored, err = repo.GetByID(suiteCtx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.IsAdmin).To(BeFalse())
		})
	})
})

var _ = Describe("auth flows on PostgreSQL", func() {
	var (
		repo         *postgres.AccountRepository
		registration *auth.RegistrationFlow
		login        *auth.AuthenticationFlow
	)

	BeforeEach(func() {
		truncateAccounts()
		repo = postgres.NewAccountRepository(pool)
		hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		registration, err = auth.NewRegistrationFlow(repo, hasher)
		Expect(err).NotTo(HaveOccurred())
		login, err = auth.NewAuthenticationFlow(repo, hasher)
		Expect(err).NotTo(HaveOccurred())
	})

	It("registers then logs in", func() {
		created, err := registration.Register(suiteCtx, "juanito perez", "example@domain.com", "Example123", false)
		Expect(err).NotTo(HaveOccurred())

		account, err := login.Login(suiteCtx, "example@domain.com", "Example123")
		Expect(err).NotTo(HaveOccurred())
		Expect(account.ID).To(Equal(created.ID))
		Expect(account.LastLoginAt).NotTo(BeNil())
	})

	It("reports a taken email as a validation failure", func() {
		_, err := registration.Register(suiteCtx, "a", "taken@domain.com", "Example123", false)
		Expect(err).NotTo(HaveOccurred())

		_, err = registration.Register(suiteCtx, "b", "taken@domain.com", "Example123", false)
		Expect(auth.IsEmailTaken(err)).To(BeTrue())
	})

	It("bootstraps the admin idempotently", func() {
		bootstrap, err := auth.NewBootstrapAdmin(registration, repo, nil)
		Expect(err).NotTo(HaveOccurred())
		seed := auth.AdminSeed{Name: "Administrator", Email: "admin@app.com", Password: "Admin1234"}

		outcome, err := bootstrap.EnsureAdmin(suiteCtx, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(auth.AdminCreated))

		outcome, err = bootstrap.EnsureAdmin(suiteCtx, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(auth.AdminUnchanged))
	})
})
