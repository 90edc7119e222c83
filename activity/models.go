package activity

import "cusext/disagreement"

// Activity is the parent row in T_MST_CUS_ACT_DT.
type Activity struct {
	ID          string             `json:"id"`
	Subject     string             `json:"subject"`
	HouseholdID string             `json:"household_id"`
	Scope       disagreement.Scope `json:"-"`
	ScopeName   string             `json:"scope"`
	EntryBy     string             `json:"entry_by"`
	EntryDate   string             `json:"entry_date"`
}

// DeleteResult reports what a cascading delete removed.
type DeleteResult struct {
	ActivityID     string `json:"activity_id"`
	RecordsDeleted int64  `json:"records_deleted"`
}
