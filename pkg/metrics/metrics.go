package metrics

/*
Labels and so on for metrics used in stackdiff.
*/

const (
	LabelMethod  = "method"
	LabelSuccess = "success"
	LabelRoute   = "route"
	LabelStatus  = "status_code"

	// Labels for comparison metrics
	LabelOutcome = "outcome"
)

// Outcomes of comparing one file between two stacks.
const (
	OutcomeDifferent = "different"
	OutcomeIdentical = "identical"
	OutcomeMissing   = "missing"
)
