// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package store_test

import (
	"context"
	"path/filepath"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/authtest"
	"github.com/okiri/okiri/internal/store"
)

var _ = Describe("Account recovery", func() {
	var (
		ctx        context.Context
		backend    *store.Backend
		clock      *authtest.FakeClock
		dispatcher *authtest.RecordingDispatcher
		svc        *auth.Service
	)

	build := func(cfg store.Config) {
		var err error
		backend, err = store.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(backend.Close)

		clock = authtest.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		dispatcher = &authtest.RecordingDispatcher{}

		hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
		credentials, err := auth.NewCredentialStore(backend.Accounts, hasher, clock, nil)
		Expect(err).NotTo(HaveOccurred())
		flow, err := auth.NewVerificationFlow(backend.Accounts, backend.Verifications,
			auth.WithClock(clock),
			auth.WithDispatcher(dispatcher),
		)
		Expect(err).NotTo(HaveOccurred())
		svc, err = auth.NewService(credentials, flow)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	DescribeTable("signing up, forgetting the password and recovering it",
		func(configure func() store.Config) {
			build(configure())

			By("registering")
			Expect(svc.Register(ctx, "a@x.com", "abc")).To(MatchError(ContainSubstring("at least 8 characters")))
			Expect(svc.Register(ctx, "a@x.com", "Abcdef1!")).To(Succeed())
			Expect(auth.ErrorCode(svc.Register(ctx, "a@x.com", "Abcdef1!"))).To(Equal(auth.CodeAlreadyExists))

			By("logging in")
			ok, err := svc.Login(ctx, "a@x.com", "Abcdef1!")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			By("requesting a reset code")
			Expect(svc.RequestReset(ctx, "nobody@x.com")).To(BeFalse())
			Expect(svc.RequestReset(ctx, "a@x.com")).To(BeTrue())
			first := dispatcher.Last("a@x.com")
			Expect(first).To(HaveLen(auth.CodeLength))

			clock.Advance(30 * time.Second)
			Expect(auth.ErrorCode(svc.SendCode(ctx, "a@x.com"))).To(Equal(auth.CodeRateLimited))

			clock.Advance(auth.DefaultResendInterval)
			Expect(svc.RequestReset(ctx, "a@x.com")).To(BeTrue())
			code := dispatcher.Last("a@x.com")

			By("confirming the code")
			Expect(svc.ConfirmReset(ctx, "a@x.com", "not-it")).To(BeFalse())
			clock.Advance(29 * time.Minute)
			Expect(svc.ConfirmReset(ctx, "a@x.com", code)).To(BeTrue())

			By("choosing a new password")
			Expect(auth.ErrorCode(svc.ResetPassword(ctx, "a@x.com", " Abcdef1! "))).To(Equal(auth.CodePasswordUnchanged))
			Expect(svc.ResetPassword(ctx, "a@x.com", "Newpass9#")).To(Succeed())

			ok, err = svc.Login(ctx, "a@x.com", "Newpass9#")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			ok, err = svc.Login(ctx, "a@x.com", "Abcdef1!")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			By("expiring the code")
			clock.Advance(2 * time.Minute)
			Expect(svc.ConfirmReset(ctx, "a@x.com", code)).To(BeFalse())
			n, err := svc.Purge(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeEquivalentTo(1))
		},
		Entry("in memory", func() store.Config {
			return store.Config{Driver: store.DriverMemory}
		}),
		Entry("on sqlite", func() store.Config {
			return store.Config{Driver: store.DriverSQLite, DSN: filepath.Join(GinkgoT().TempDir(), "okiri.db")}
		}),
		Entry("on redis", func() store.Config {
			mr, err := miniredis.Run()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(mr.Close)
			return store.Config{Driver: store.DriverRedis, RedisAddr: mr.Addr()}
		}),
	)
})
