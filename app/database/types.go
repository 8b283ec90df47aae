package database

import (
	"time"
)

type Committee struct {
	ID              int64
	CommitteeID     int64 // parliament.bg A_ns_C_id
	CommitteeTypeID *int64
	Name            string
	DateFrom        string
	DateTo          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Bill struct {
	ID          int64
	BillID      int64 // parliament.bg L_Act_id
	CommitteeID *int64
	Title       string
	Sign        string // e.g. "51-554-01-123"
	Signature   string
	BillDate    *time.Time
	Path        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Transcript struct {
	ID             int64
	TranscriptID   string // external steno identifier, unique
	CommitteeID    int64
	Type           string
	TranscriptDate *time.Time
	Year           int // 0 when the date is unknown
	Month          int
	ContentHTML    string
	ContentText    string
	WordCount      int
	CharacterCount int
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DiscussionRecord is the persisted form of one extracted bill discussion.
type DiscussionRecord struct {
	ID                   int64
	TranscriptID         int64 // transcripts.id
	BillID               *int64
	ExtractionType       string
	BillIdentifier       string
	ProposerName         string
	AmendmentType        string
	AmendmentDescription string
	Status               string
	VoteFor              *int
	VoteAgainst          *int
	VoteAbstained        *int
	Confidence           *float64
	RawContext           string
	Metadata             map[string]any
	CreatedAt            time.Time
}

// TranscriptFilter selects transcripts for extraction.
type TranscriptFilter struct {
	TranscriptIDs    []string
	CommitteeID      int64
	From             *time.Time
	To               *time.Time
	Limit            int
	ExtractionType   string
	IncludeExtracted bool
}

type DiscussionStats struct {
	Total           int
	HighConfidence  int
	LowConfidence   int
	LinkedToBill    int
	ByStatus        map[string]int
	ByAmendmentType map[string]int
}
