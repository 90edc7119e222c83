package disagreement

import "strings"

// Scope selects which parent activities a read may see, driven by the
// activity's REGIST_KBN registration code.
type Scope int

const (
	// ScopeBranch is the zero value: activities registered by a branch office.
	ScopeBranch Scope = iota
	// ScopeHeadquarters restricts reads to activities registered at head office.
	ScopeHeadquarters
)

func (s Scope) String() string {
	if s == ScopeHeadquarters {
		return "hq"
	}
	return "branch"
}

// RegistrationCode is the REGIST_KBN literal the scope filters on.
func (s Scope) RegistrationCode() string {
	if s == ScopeHeadquarters {
		return headquarterCd
	}
	return branchCode
}

// ParseScope accepts "branch", "hq" or "headquarters". An empty string is
// ScopeBranch.
func ParseScope(raw string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "branch":
		return ScopeBranch, true
	case "hq", "headquarters":
		return ScopeHeadquarters, true
	}
	return ScopeBranch, false
}

// Competitor is one competing company/product pair.
type Competitor struct {
	Company string `json:"company"`
	Product string `json:"product"`
}

// Form is the caller-supplied input for Insert and Update. RecordNumber is
// ignored by Insert; ActivityID and HouseholdID are ignored by Update.
type Form struct {
	RecordNumber       string        `json:"record_number,omitempty"`
	ActivityID         string        `json:"activity_id"`
	Subject            string        `json:"subject"`
	HouseholdID        string        `json:"household_id"`
	NoContact          string        `json:"no_contact"`
	Distrust           string        `json:"distrust"`
	ViaOtherAgent      string        `json:"via_other_agent"`
	UnderwriteRejected string        `json:"underwrite_rejected"`
	Memo               string        `json:"memo"`
	Competitors        [3]Competitor `json:"competitors"`
	Scope              Scope         `json:"-"`
}

// Summary is the list projection.
type Summary struct {
	RecordNumber string     `json:"record_number"`
	Competitor   Competitor `json:"competitor"`
	Memo         string     `json:"memo"`
	EntryDate    string     `json:"entry_date"`
	UpdateDate   string     `json:"update_date"`
}

// Detail is the full projection of one record. Timestamps are formatted
// "YYYY/MM/DD HH24:MI" by the database.
type Detail struct {
	RecordNumber       string        `json:"record_number"`
	ActivityID         string        `json:"activity_id"`
	Subject            string        `json:"subject"`
	ActivitySubject    string        `json:"activity_subject"`
	HouseholdID        string        `json:"household_id"`
	NoContact          string        `json:"no_contact"`
	Distrust           string        `json:"distrust"`
	ViaOtherAgent      string        `json:"via_other_agent"`
	UnderwriteRejected string        `json:"underwrite_rejected"`
	Memo               string        `json:"memo"`
	Competitors        [3]Competitor `json:"competitors"`
	EntryProgramID     string        `json:"entry_program_id"`
	EntryDate          string        `json:"entry_date"`
	EntryBy            string        `json:"entry_by"`
	UpdateProgramID    string        `json:"update_program_id"`
	UpdateDate         string        `json:"update_date"`
	UpdateBy           string        `json:"update_by"`
}
