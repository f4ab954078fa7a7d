// Package service contains the business-logic layer gluing the
// credential manager, API client, reconciliation engine and CSV I/O
// into the one workflow the tool exists for.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/membersync/internal/csvio"
	"github.com/sakif/membersync/internal/model"
	"github.com/sakif/membersync/internal/reconcile"
)

// Output file names, stable so downstream spreadsheets can re-import
// without re-pointing.
const (
	GroupsFile   = "xero-contact-groups.csv"
	ContactsFile = "xero-contacts.csv"
	MissingFile  = "missing-contacts.csv"
	UpdatingFile = "updating-contacts.csv"
)

// ContactsAPI is the slice of the accounting API client the sync needs.
// *xero.Client satisfies it; tests substitute a fake.
type ContactsAPI interface {
	Tenant(ctx context.Context) (*model.Tenant, error)
	ContactGroups(ctx context.Context) ([]model.ContactGroup, error)
	Contacts(ctx context.Context) ([]model.Contact, error)
}

// Summary is what a sync run produced, for presentation.
type Summary struct {
	Tenant   model.Tenant
	Groups   int
	Contacts int
	Members  int
	Result   reconcile.Result
}

// SyncService runs the full reconciliation workflow.
type SyncService struct {
	api         ContactsAPI
	engine      *reconcile.Engine
	logger      *slog.Logger
	membersFile string
	outputDir   string
}

// NewSyncService wires a SyncService.
func NewSyncService(api ContactsAPI, engine *reconcile.Engine, membersFile, outputDir string, logger *slog.Logger) *SyncService {
	return &SyncService{
		api:         api,
		engine:      engine,
		logger:      logger,
		membersFile: membersFile,
		outputDir:   outputDir,
	}
}

// Run executes one reconciliation:
//
//  1. Resolve the tenant (which transitively obtains a valid credential).
//  2. Fetch contact groups and the paginated contact list. The two have
//     no ordering dependency, so they run concurrently; pages WITHIN the
//     contact fetch stay sequential.
//  3. Load the membership export.
//  4. Build the name index and classify every membership record.
//  5. Write the four outputs.
//
// Rejected (malformed) rows are logged and reported in the Summary, but
// never abort the run.
func (s *SyncService) Run(ctx context.Context) (*Summary, error) {
	tenant, err := s.api.Tenant(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("syncing tenant", slog.String("tenant", tenant.TenantName))

	var (
		groups   []model.ContactGroup
		contacts []model.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = s.api.ContactGroups(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = s.api.Contacts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("fetched ledger data",
		slog.Int("groups", len(groups)),
		slog.Int("contacts", len(contacts)),
	)

	members, err := csvio.LoadMembersFile(s.membersFile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded membership export",
		slog.String("file", s.membersFile),
		slog.Int("members", len(members)),
	)

	index := s.engine.BuildIndex(contacts)
	result := s.engine.Classify(members, contacts, index)

	for _, rejected := range result.Rejected {
		s.logger.Warn("rejected membership row",
			slog.Int("row", rejected.Row),
			slog.String("reason", rejected.Message),
		)
	}

	if err := s.writeOutputs(groups, contacts, result); err != nil {
		return nil, err
	}

	return &Summary{
		Tenant:   *tenant,
		Groups:   len(groups),
		Contacts: len(contacts),
		Members:  len(members),
		Result:   result,
	}, nil
}

func (s *SyncService) writeOutputs(groups []model.ContactGroup, contacts []model.Contact, result reconcile.Result) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("service: creating output directory: %w", err)
	}

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{GroupsFile, func(w io.Writer) error { return csvio.WriteContactGroups(w, groups) }},
		{ContactsFile, func(w io.Writer) error { return csvio.WriteContacts(w, contacts) }},
		{MissingFile, func(w io.Writer) error { return csvio.WriteNew(w, result.New) }},
		{UpdatingFile, func(w io.Writer) error { return csvio.WriteOutdated(w, result.Outdated) }},
	}
	for _, out := range outputs {
		path := filepath.Join(s.outputDir, out.name)
		if err := csvio.WriteFile(path, out.write); err != nil {
			return err
		}
		s.logger.Info("wrote output", slog.String("file", path))
	}
	return nil
}
