package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/membersync/internal/model"
	"github.com/sakif/membersync/internal/repository"
)

// compile-time check that *DB implements repository.CredentialStore
var _ repository.CredentialStore = (*DB)(nil)

// Read returns the stored credential, or (nil, nil) when the store is
// empty. Absence is a normal state (first run, or after sign-out), not
// an error.
func (db *DB) Read(ctx context.Context) (*model.Credential, error) {
	var cred model.Credential
	err := db.conn.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, id_token, token_type, expires_in, issued_at
		 FROM credentials WHERE id = 1`,
	).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.IDToken,
		&cred.TokenType,
		&cred.ExpiresIn,
		&cred.IssuedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading credential: %w", err)
	}
	return &cred, nil
}

// Write persists the credential, replacing any previous record. The
// fixed id=1 key plus REPLACE INTO makes this a single atomic statement.
func (db *DB) Write(ctx context.Context, cred *model.Credential) error {
	_, err := db.conn.ExecContext(ctx,
		`REPLACE INTO credentials (id, access_token, refresh_token, id_token, token_type, expires_in, issued_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)`,
		cred.AccessToken,
		cred.RefreshToken,
		cred.IDToken,
		cred.TokenType,
		cred.ExpiresIn,
		cred.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential. Deleting from an empty table is a
// no-op, which gives sign-out its idempotence.
func (db *DB) Clear(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("sqlite: clearing credential: %w", err)
	}
	return nil
}
