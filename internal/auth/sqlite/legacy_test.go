// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/sqlite"
)

// seedLegacyDatabase writes a database file shaped like the one earlier app
// releases created: no provider column and plaintext passwords.
func seedLegacyDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "okiri.db")

	db, err := sql.Open(sqlite.DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE users (
			email      TEXT PRIMARY KEY NOT NULL,
			password   TEXT NOT NULL,
			created_at TEXT
		);
		CREATE TABLE verification_codes (
			email   TEXT PRIMARY KEY NOT NULL,
			code    TEXT NOT NULL,
			sent_at INTEGER NOT NULL
		);
		INSERT INTO users (email, password, created_at) VALUES ('old@x.com', 'Legacy1!', '2024-05-01 10:00:00');
		INSERT INTO users (email, password) VALUES ('nodate@x.com', 'Legacy2!');
	`)
	require.NoError(t, err)
	return path
}

func TestOpen_AdoptsLegacyDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, seedLegacyDatabase(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	accounts := sqlite.NewAccountRepository(db)

	old, err := accounts.Get(ctx, "old@x.com")
	require.NoError(t, err)
	assert.Equal(t, auth.ProviderEmail, old.Provider)
	assert.Equal(t, "2024-05-01 10:00:00", old.CreatedAt.Format("2006-01-02 15:04:05"))

	nodate, err := accounts.Get(ctx, "nodate@x.com")
	require.NoError(t, err)
	assert.True(t, nodate.CreatedAt.IsZero())

	t.Run("plaintext rows are upgraded on login", func(t *testing.T) {
		hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
		store, err := auth.NewCredentialStore(accounts, hasher, nil, nil)
		require.NoError(t, err)

		ok, err := store.Verify(ctx, "old@x.com", "Legacy1!")
		require.NoError(t, err)
		assert.True(t, ok)

		upgraded, err := accounts.Get(ctx, "old@x.com")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(upgraded.PasswordHash, "$argon2id$"))
	})
}
