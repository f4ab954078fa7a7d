package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/membersync/internal/model"
	"github.com/sakif/membersync/internal/reconcile"
)

// fakeAPI is an in-memory ContactsAPI.
type fakeAPI struct {
	tenant      model.Tenant
	groups      []model.ContactGroup
	contacts    []model.Contact
	contactsErr error
}

func (f *fakeAPI) Tenant(ctx context.Context) (*model.Tenant, error) {
	return &f.tenant, nil
}

func (f *fakeAPI) ContactGroups(ctx context.Context) ([]model.ContactGroup, error) {
	return f.groups, nil
}

func (f *fakeAPI) Contacts(ctx context.Context) ([]model.Contact, error) {
	if f.contactsErr != nil {
		return nil, f.contactsErr
	}
	return f.contacts, nil
}

const membersCSV = `Role Name,Contact First Name,Contact Last Name,National Database Number,Family Contact First Name,Family Contact Last Name,Family Contact Email Address,Start Date,Billable Status,Special Billing Comments
Cub Youth,Amy,Lee,ND-1001,Nora,Lee,old@example.com,2024-02-01,Billable,
Scout Youth,Cara,Munro,ND-1002,Tim,Munro,tim@example.com,2022-07-15,Billable,
`

func writeMembersFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "mahi-contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(membersCSV), 0644))
	return path
}

func newTestService(t *testing.T, api *fakeAPI) (*SyncService, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := reconcile.NewEngine(logger)
	svc := NewSyncService(api, engine, writeMembersFile(t, dir), filepath.Join(dir, "out"), logger)
	return svc, filepath.Join(dir, "out")
}

func TestRunWritesAllOutputs(t *testing.T) {
	api := &fakeAPI{
		tenant: model.Tenant{TenantID: "tenant-1", TenantName: "1st Example Scout Group"},
		groups: []model.ContactGroup{{ContactGroupID: "g1", Name: "Cubs", Status: "ACTIVE"}},
		contacts: []model.Contact{
			{ContactID: "c1", Name: "Amy Lee", EmailAddress: "new@example.com", ContactStatus: "ACTIVE"},
		},
	}
	svc, outDir := newTestService(t, api)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	// Amy matched with a differing email → outdated; Cara unmatched → new.
	assert.Equal(t, 2, summary.Members)
	require.Len(t, summary.Result.Outdated, 1)
	assert.Equal(t, "c1", summary.Result.Outdated[0].ContactID)
	require.Len(t, summary.Result.New, 1)
	assert.Equal(t, "Cara", summary.Result.New[0].FirstName)

	for _, name := range []string{GroupsFile, ContactsFile, MissingFile, UpdatingFile} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, "output %s missing", name)
		assert.NotEmpty(t, data, "output %s empty", name)
	}

	// Spot-check content made it through the pipeline.
	updating, err := os.ReadFile(filepath.Join(outDir, UpdatingFile))
	require.NoError(t, err)
	assert.Contains(t, string(updating), "old@example.com")
	assert.Contains(t, string(updating), "new@example.com")
}

func TestRunFetchErrorAbortsBeforeOutputs(t *testing.T) {
	api := &fakeAPI{
		tenant:      model.Tenant{TenantID: "tenant-1"},
		contactsErr: errors.New("rate limited"),
	}
	svc, outDir := newTestService(t, api)

	_, err := svc.Run(context.Background())
	require.Error(t, err)

	// Nothing partial lands on disk.
	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingMembersFile(t *testing.T) {
	api := &fakeAPI{tenant: model.Tenant{TenantID: "tenant-1"}}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := reconcile.NewEngine(logger)
	svc := NewSyncService(api, engine, filepath.Join(t.TempDir(), "nope.csv"), t.TempDir(), logger)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
}
