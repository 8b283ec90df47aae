package discussion

import "strings"

type AmendmentType string

const (
	AmendmentNewText      AmendmentType = "new-text"
	AmendmentModification AmendmentType = "modification"
	AmendmentDeletion     AmendmentType = "deletion"
	AmendmentUnknown      AmendmentType = "unknown"
)

// ParseAmendmentType maps free-form model output onto the stored vocabulary.
func ParseAmendmentType(value string) AmendmentType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "new", "new_text", "new-text", "new text":
		return AmendmentNewText
	case "modification", "modify", "amendment":
		return AmendmentModification
	case "deletion", "delete", "removal":
		return AmendmentDeletion
	default:
		return AmendmentUnknown
	}
}

type Status string

const (
	StatusProposed Status = "proposed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
)

func ParseStatus(value string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusProposed, StatusApproved, StatusRejected, StatusPending:
		return s
	case "accepted", "adopted":
		return StatusApproved
	default:
		return StatusPending
	}
}

type VoteResults struct {
	For       *int
	Against   *int
	Abstained *int
}

// Discussion is one extracted bill discussion before it is linked and stored.
type Discussion struct {
	BillIdentifier       string
	ProposerName         string
	AmendmentType        AmendmentType
	AmendmentDescription string
	Status               Status
	Votes                *VoteResults
	Confidence           *float64
	RawContext           string
	ChunkIndex           int
	Raw                  map[string]any
}
