package docstore

// Outcome says whether an operation that ran without error actually produced
// a document. It is deliberately separate from the payload values: a count of
// zero or an exists=false are OutcomeOK, never inferred from truthiness.
type Outcome int

const (
	// OutcomeOK: the operation executed and its payload fields are valid.
	OutcomeOK Outcome = iota
	// OutcomeEmpty: the operation executed but no document matched.
	OutcomeEmpty
)

// Result is the uniform envelope every store operation returns alongside an
// error. A nil error means the operation executed; Outcome distinguishes
// "ran fine, nothing matched" from a real payload.
type Result struct {
	Outcome Outcome

	Doc  Document   // single-document reads and updates
	Docs []Document // multi-document reads, aggregations, bulk inserts

	Count  int64 // Count
	Exists bool  // Exists

	Matched  int64 // UpdateMany
	Modified int64 // UpdateMany
}

func (r Result) Empty() bool {
	return r.Outcome == OutcomeEmpty
}
