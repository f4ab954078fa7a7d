// Package repository defines the persistence interfaces the rest of the
// application depends on. Concrete implementations live in
// sub-packages (sqlite); consumers receive the interface, never the
// concrete type.
package repository

import (
	"context"

	"github.com/sakif/membersync/internal/model"
)

// CredentialStore is durable storage for a single credential record.
//
// The store holds AT MOST ONE credential — writing replaces whatever was
// there. It must survive process restarts: the credential manager's
// "avoid redundant interactive authorization" behaviour depends on
// finding the previous run's credential on startup.
//
// If this tool is ever adapted to serve concurrent users, the store must
// be partitioned per session/tenant rather than shared.
type CredentialStore interface {
	// Read returns the stored credential, or (nil, nil) when none is
	// stored. A non-nil error means the store itself failed.
	Read(ctx context.Context) (*model.Credential, error)

	// Write persists the credential, replacing any previous record.
	Write(ctx context.Context, cred *model.Credential) error

	// Clear removes the stored credential. Clearing an empty store is
	// not an error.
	Clear(ctx context.Context) error
}
