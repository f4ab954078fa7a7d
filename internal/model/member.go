package model

// MembershipRecord is one row of the membership registry's CSV export.
//
// The csv tags match the export's header row verbatim — the membership
// system emits human-readable column names with spaces, and we map them
// straight onto struct fields rather than post-processing headers.
//
// The record carries no generated ID. For matching purposes its identity
// is either "<FirstName> <LastName>" or the national database number —
// the engine never requires both to agree.
type MembershipRecord struct {
	RoleName               string `csv:"Role Name"`
	FirstName              string `csv:"Contact First Name"`
	LastName               string `csv:"Contact Last Name"`
	NationalDatabaseNumber string `csv:"National Database Number"`
	FamilyFirstName        string `csv:"Family Contact First Name"`
	FamilyLastName         string `csv:"Family Contact Last Name"`
	FamilyEmail            string `csv:"Family Contact Email Address"`
	StartDate              string `csv:"Start Date"`
	BillableStatus         string `csv:"Billable Status"`
	SpecialBillingComments string `csv:"Special Billing Comments"`
}

// FullName returns the name used to query the contact index:
// first and last name joined by a single space, case preserved.
func (m MembershipRecord) FullName() string {
	return m.FirstName + " " + m.LastName
}

// UpdateProposal pairs a uniquely matched ledger contact with the
// membership row whose guardian email disagrees with the ledger's stored
// email. It is a proposal only — applying the update to the ledger is an
// external operation this system never performs.
type UpdateProposal struct {
	ContactID     string `csv:"ContactID"`
	AccountNumber string `csv:"AccountNumber"`
	Name          string `csv:"Name"`
	MahiName      string `csv:"MahiName"`
	MahiRole      string `csv:"MahiRole"`
	EmailAddress  string `csv:"EmailAddress"`
	MahiEmail     string `csv:"MahiEmail"`
}
