package database

type CommitteeRepository interface {
	GetCommittees() ([]Committee, error)
	GetCommitteeCount() (int, error)

	UpsertCommittee(committee Committee) error
}

type BillRepository interface {
	GetBillCount() (int, error)
	FindBillByNumber(core string) (*Bill, error)

	UpsertBill(bill Bill) error
}

type TranscriptRepository interface {
	GetTranscript(transcriptID string) (*Transcript, error)
	GetTranscriptByID(id int64) (*Transcript, error)
	GetTranscriptCount() (int, error)
	GetTranscriptsForExtraction(filter TranscriptFilter) ([]Transcript, error)

	CreateTranscript(transcript *Transcript) error
	UpdateTranscriptContent(transcript *Transcript) error
}

type DiscussionRepository interface {
	GetDiscussions(transcriptID int64, extractionType string) ([]DiscussionRecord, error)
	CountDiscussions(transcriptID int64, extractionType string) (int, error)
	GetDiscussionStats() (*DiscussionStats, error)

	// SaveDiscussions inserts records in one transaction. When replace is set,
	// rows for each of extractionTypes are deleted first. Every listed type is
	// marked as extracted for the transcript, even when no records were written.
	SaveDiscussions(transcriptID int64, extractionTypes []string, records []DiscussionRecord, replace bool) (int, error)
}
