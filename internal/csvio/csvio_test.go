package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/membersync/internal/model"
)

const membershipExport = `Role Name,Contact First Name,Contact Last Name,Date of Birth,National Database Number,Family Contact First Name,Family Contact Last Name,Family Contact Email Address,Start Date,Billable Status,Special Billing Comments
Cub Youth,Amy,Lee,2016-04-02,ND-1001,Nora,Lee,nora@example.com,2024-02-01,Billable,
Scout Youth,Bob,Carter,2013-11-20,ND-1002,Rob,Carter,rob@example.com,2022-07-15,Billable,sibling discount
`

func TestLoadMembers(t *testing.T) {
	rows, err := LoadMembers(strings.NewReader(membershipExport))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	amy := rows[0]
	assert.Equal(t, "Cub Youth", amy.RoleName)
	assert.Equal(t, "Amy", amy.FirstName)
	assert.Equal(t, "Lee", amy.LastName)
	assert.Equal(t, "ND-1001", amy.NationalDatabaseNumber)
	assert.Equal(t, "nora@example.com", amy.FamilyEmail)
	assert.Equal(t, "Amy Lee", amy.FullName())

	// Columns we don't map (Date of Birth) are ignored, not an error.
	bob := rows[1]
	assert.Equal(t, "sibling discount", bob.SpecialBillingComments)
}

func TestLoadMembersBadInput(t *testing.T) {
	_, err := LoadMembers(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteContacts(t *testing.T) {
	var buf bytes.Buffer
	err := WriteContacts(&buf, []model.Contact{
		{ContactID: "c1", ContactStatus: "ACTIVE", Name: "Amy Lee", EmailAddress: "nora@example.com"},
	})
	require.NoError(t, err)

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ContactID,ContactNumber,ContactStatus,Name,EmailAddress", lines[0])
	assert.Contains(t, lines[1], "Amy Lee")
}

func TestWriteContactGroupsFlattensMembers(t *testing.T) {
	var buf bytes.Buffer
	err := WriteContactGroups(&buf, []model.ContactGroup{
		{
			ContactGroupID: "g1",
			Name:           "Cubs",
			Status:         "ACTIVE",
			Contacts: []model.Contact{
				{ContactID: "c1", Name: "Amy Lee"},
				{ContactID: "c2", Name: "Bob Carter"},
			},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Amy Lee; Bob Carter")
	assert.Contains(t, out, ",2,") // member count
}

func TestWriteOutdatedHeaders(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOutdated(&buf, []model.UpdateProposal{
		{
			ContactID:     "c1",
			AccountNumber: "ND-1001",
			Name:          "Amy Lee",
			MahiName:      "Amy Lee",
			MahiRole:      "Cub Youth",
			EmailAddress:  "old@example.com",
			MahiEmail:     "new@example.com",
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ContactID,AccountNumber,Name,MahiName,MahiRole,EmailAddress,MahiEmail", lines[0])
}

func TestWriteNewEmptySetStillWritesHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNew(&buf, nil))

	// An empty classification still produces a well-formed file.
	assert.Contains(t, buf.String(), "Contact First Name")
}

func TestRoundTrip(t *testing.T) {
	rows, err := LoadMembers(strings.NewReader(membershipExport))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteNew(&buf, rows))

	again, err := LoadMembers(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}
