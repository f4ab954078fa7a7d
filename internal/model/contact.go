// Package model defines the domain types shared across the application.
//
// There are two independent registries being reconciled:
//
//   - The accounting ledger's contacts, fetched over its REST API
//     (Contact, ContactGroup, Tenant). These are read-only inputs — we
//     never mutate them, we only propose updates.
//   - The membership registry's export rows (MembershipRecord), loaded
//     from a CSV file. Also read-only input.
//
// The JSON tags on the ledger types match the accounting API's wire
// format exactly (PascalCase field names are the provider's convention,
// not ours).
package model

// Contact is a single contact record in the accounting ledger.
//
// ContactID is the provider's opaque stable identifier — unique within a
// tenant and never reused. Name is NOT guaranteed unique: two distinct
// contacts may carry the same display name, which is why the
// reconciliation engine refuses to auto-match when a name query returns
// more than one candidate.
type Contact struct {
	ContactID     string `json:"ContactID" csv:"ContactID"`
	ContactNumber string `json:"ContactNumber,omitempty" csv:"ContactNumber"`
	ContactStatus string `json:"ContactStatus" csv:"ContactStatus"`
	Name          string `json:"Name" csv:"Name"`
	EmailAddress  string `json:"EmailAddress" csv:"EmailAddress"`
}

// ContactGroup is a named collection of ledger contacts. Membership is
// ordered but carries no ownership — a contact may belong to zero or
// more groups.
type ContactGroup struct {
	ContactGroupID string    `json:"ContactGroupID"`
	Name           string    `json:"Name"`
	Status         string    `json:"Status"`
	Contacts       []Contact `json:"Contacts"`
}

// Tenant identifies the organisation scope the ledger data belongs to.
// It is resolved once per session from the provider's connections
// endpoint and sent as a header on every subsequent API call.
type Tenant struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
}

// ContactStatusActive is the only contact status this tool requests:
// archived ledger contacts are invisible to reconciliation.
const ContactStatusActive = "ACTIVE"
