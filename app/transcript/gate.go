package transcript

type Decision int

const (
	DecisionSkip Decision = iota
	DecisionCreate
	DecisionUpdate
)

func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionCreate:
		return "create"
	case DecisionUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Decide picks what to do with a listed transcript. A stored transcript with
// content is only refetched when force is set.
func Decide(exists, hasStoredContent, force bool) Decision {
	if !exists {
		return DecisionCreate
	}
	if hasStoredContent && !force {
		return DecisionSkip
	}
	return DecisionUpdate
}
