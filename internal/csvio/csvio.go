// Package csvio loads the membership registry's CSV export and writes
// the tool's four tabular outputs.
//
// All header mapping is declarative: the csv struct tags on the model
// types carry the exact column names, and gocsv does the plumbing. The
// membership export contains more columns than we use — unmapped
// columns are ignored on load.
package csvio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/sakif/membersync/internal/model"
)

// LoadMembers reads membership rows from r. The first row must be the
// header row; columns are matched by name, not position.
func LoadMembers(r io.Reader) ([]model.MembershipRecord, error) {
	var rows []model.MembershipRecord
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("csvio: parsing membership export: %w", err)
	}
	return rows, nil
}

// LoadMembersFile reads membership rows from the file at path.
func LoadMembersFile(path string) ([]model.MembershipRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: opening membership export: %w", err)
	}
	defer f.Close()
	return LoadMembers(f)
}

// WriteContacts writes the full ledger contact list as a flat table.
func WriteContacts(w io.Writer, contacts []model.Contact) error {
	if err := gocsv.Marshal(&contacts, w); err != nil {
		return fmt.Errorf("csvio: writing contacts: %w", err)
	}
	return nil
}

// contactGroupRow is the flattened export shape for a contact group:
// the ordered membership list collapses to a semicolon-joined name list
// so the output stays a flat table.
type contactGroupRow struct {
	ContactGroupID string `csv:"ContactGroupID"`
	Name           string `csv:"Name"`
	Status         string `csv:"Status"`
	MemberCount    int    `csv:"MemberCount"`
	Members        string `csv:"Members"`
}

// WriteContactGroups writes the contact groups as a flat table.
func WriteContactGroups(w io.Writer, groups []model.ContactGroup) error {
	rows := make([]contactGroupRow, len(groups))
	for i, g := range groups {
		names := make([]string, len(g.Contacts))
		for j, c := range g.Contacts {
			names[j] = c.Name
		}
		rows[i] = contactGroupRow{
			ContactGroupID: g.ContactGroupID,
			Name:           g.Name,
			Status:         g.Status,
			MemberCount:    len(g.Contacts),
			Members:        strings.Join(names, "; "),
		}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("csvio: writing contact groups: %w", err)
	}
	return nil
}

// WriteNew writes the membership records classified as missing from the
// ledger. Columns mirror the membership export so the output can feed a
// bulk-import directly.
func WriteNew(w io.Writer, records []model.MembershipRecord) error {
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("csvio: writing new contacts: %w", err)
	}
	return nil
}

// WriteOutdated writes the update proposals for contacts whose stored
// email disagrees with the membership registry.
func WriteOutdated(w io.Writer, proposals []model.UpdateProposal) error {
	if err := gocsv.Marshal(&proposals, w); err != nil {
		return fmt.Errorf("csvio: writing outdated contacts: %w", err)
	}
	return nil
}

// WriteFile opens path for writing (truncating) and hands the file to
// write. It exists so the service layer can stamp out the four outputs
// without repeating open/close bookkeeping.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvio: creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csvio: closing %s: %w", path, err)
	}
	return nil
}
