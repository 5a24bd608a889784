package models

// ItemError records a single record that a migration could not process.
// Item failures never abort the run; they are reported and the run moves on.
type ItemError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// MigrationReport is computed per invocation, not persisted. Re-running a
// completed phase yields Updated == 0 with everything counted as skipped.
type MigrationReport struct {
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Created int         `json:"created"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// Merge folds another report into r, used when aggregating per-batch results.
func (r *MigrationReport) Merge(other MigrationReport) {
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Created += other.Created
	r.Errors = append(r.Errors, other.Errors...)
}

// AddError appends a per-item failure.
func (r *MigrationReport) AddError(id, reason string) {
	r.Errors = append(r.Errors, ItemError{ID: id, Reason: reason})
}

// StatusReport is the read-only verification summary paired with each
// migration phase.
type StatusReport struct {
	Collection string `json:"collection"`
	Migrated   int    `json:"migrated"`
	Remaining  int    `json:"remaining"`
	Total      int    `json:"total"`
}
