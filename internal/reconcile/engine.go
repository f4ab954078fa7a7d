// Package reconcile classifies membership records against the accounting
// ledger's contact set.
//
// CLASSIFICATION OUTCOMES (per membership record):
//   - New      — no acceptable name match AND no exact email match.
//     The person exists in the membership registry but not the ledger.
//   - Outdated — exactly one acceptable name match whose stored email
//     differs from the record's guardian email. Carried as an update
//     proposal; nothing is written back to the ledger here.
//   - Current  — everything else, materialized explicitly so the three
//     sets always partition the input.
//
// TIE POLICY:
// Two or more acceptable candidates never produce an Outdated outcome,
// even when one candidate looks much stronger. Auto-attributing an email
// update to the wrong external record is worse than doing nothing, so
// ambiguity always lands in Current and waits for a human. Duplicate
// ledger contacts with identical names deliberately trigger this branch.
package reconcile

import (
	"log/slog"

	"github.com/sakif/membersync/internal/apperror"
	"github.com/sakif/membersync/internal/match"
	"github.com/sakif/membersync/internal/model"
)

// DefaultThreshold is the acceptance threshold for name matches:
// a candidate is accepted when its dissimilarity score is at most this
// value (lower score = closer match, see package match).
const DefaultThreshold = 0.1

// Result is the full classification of one membership set against one
// contact set. New, Outdated grouped by record, and Current partition the
// well-formed input rows; Rejected carries the malformed rows that could
// not be classified at all, with their positions.
type Result struct {
	New      []model.MembershipRecord
	Outdated []model.UpdateProposal
	Current  []model.MembershipRecord
	Rejected []*apperror.AppError
}

// Engine performs the matching and classification. It does no I/O — both
// record sets arrive fully loaded, and the only failure mode is a
// malformed input row.
type Engine struct {
	threshold float64
	indexOpts []match.Option
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the acceptance threshold. This is the single
// tunable of the matching step.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithCaseFolding makes name matching case-insensitive. Off by default —
// see match.WithCaseFolding for why.
func WithCaseFolding() Option {
	return func(e *Engine) { e.indexOpts = append(e.indexOpts, match.WithCaseFolding()) }
}

// NewEngine creates an Engine with the given options.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		threshold: DefaultThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildIndex constructs the searchable name index over the contact set.
// It is a pure function of its input: rebuild it whenever the contact
// set changes (e.g. a fresh ledger export is loaded), nothing is mutated
// incrementally.
func (e *Engine) BuildIndex(contacts []model.Contact) match.Matcher {
	names := make([]string, len(contacts))
	for i, c := range contacts {
		names[i] = c.Name
	}
	return match.NewIndex(names, e.indexOpts...)
}

// Classify partitions the membership records into New, Outdated and
// Current against the given contact set. index must have been built from
// the same contacts slice (BuildIndex), since match positions are mapped
// back through it.
//
// Running Classify twice on identical inputs yields identical results:
// the matcher is deterministic and nothing here consults a clock or
// random source.
func (e *Engine) Classify(records []model.MembershipRecord, contacts []model.Contact, index match.Matcher) Result {
	result := Result{}

	for i, rec := range records {
		if rec.FirstName == "" && rec.LastName == "" {
			// Row is unmatchable by name. Report it with its 1-based
			// position and keep going — one bad row must not sink the batch.
			result.Rejected = append(result.Rejected, apperror.MalformedRecord(i+1, "missing contact first and last name"))
			continue
		}

		candidates := e.acceptedCandidates(index, rec, contacts)
		emailMatch := hasEmailMatch(contacts, rec.FamilyEmail)

		switch {
		case len(candidates) == 0 && !emailMatch:
			result.New = append(result.New, rec)

		case len(candidates) == 1 && candidates[0].EmailAddress != rec.FamilyEmail:
			c := candidates[0]
			result.Outdated = append(result.Outdated, model.UpdateProposal{
				ContactID:     c.ContactID,
				AccountNumber: rec.NationalDatabaseNumber,
				Name:          c.Name,
				MahiName:      rec.FullName(),
				MahiRole:      rec.RoleName,
				EmailAddress:  c.EmailAddress,
				MahiEmail:     rec.FamilyEmail,
			})

		default:
			// Single candidate with agreeing email, or an ambiguous
			// multi-candidate match, or no name match but an email hit.
			result.Current = append(result.Current, rec)
		}
	}

	if e.logger != nil {
		e.logger.Info("classification complete",
			slog.Int("records", len(records)),
			slog.Int("new", len(result.New)),
			slog.Int("outdated", len(result.Outdated)),
			slog.Int("current", len(result.Current)),
			slog.Int("rejected", len(result.Rejected)),
		)
	}
	return result
}

// acceptedCandidates queries the index with the record's full name and
// maps accepted matches back onto contacts, dropping duplicate contact
// IDs (a candidate list never repeats an ID).
func (e *Engine) acceptedCandidates(index match.Matcher, rec model.MembershipRecord, contacts []model.Contact) []model.Contact {
	var accepted []model.Contact
	seen := make(map[string]bool)
	for _, m := range index.Search(rec.FullName(), e.threshold) {
		c := contacts[m.Index]
		if seen[c.ContactID] {
			continue
		}
		seen[c.ContactID] = true
		accepted = append(accepted, c)
	}
	return accepted
}

// hasEmailMatch reports whether any contact's stored email exactly
// equals the guardian email. Comparison is case-sensitive, byte-exact —
// the historical behaviour this replaces did no normalization either.
func hasEmailMatch(contacts []model.Contact, email string) bool {
	for _, c := range contacts {
		if c.EmailAddress == email {
			return true
		}
	}
	return false
}
