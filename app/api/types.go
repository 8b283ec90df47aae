package api

import (
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/tasks"
)

type Handler struct {
	committees  database.CommitteeRepository
	bills       database.BillRepository
	transcripts database.TranscriptRepository
	discussions database.DiscussionRepository
	extractor   *tasks.Extractor
	scheduler   tasks.TaskSchedulerInterface
}

type TranscriptResponse struct {
	TranscriptID   string               `json:"transcript_id"`
	CommitteeID    int64                `json:"committee_id"`
	Type           string               `json:"type"`
	TranscriptDate string               `json:"transcript_date,omitempty"`
	WordCount      int                  `json:"word_count"`
	CharacterCount int                  `json:"character_count"`
	Metadata       map[string]any       `json:"metadata"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Discussions    []DiscussionResponse `json:"discussions"`
}

type DiscussionResponse struct {
	ExtractionType       string   `json:"extraction_type"`
	BillIdentifier       string   `json:"bill_identifier"`
	BillID               *int64   `json:"bill_id"`
	ProposerName         string   `json:"proposer_name"`
	AmendmentType        string   `json:"amendment_type"`
	AmendmentDescription string   `json:"amendment_description"`
	Status               string   `json:"status"`
	VoteFor              *int     `json:"vote_for"`
	VoteAgainst          *int     `json:"vote_against"`
	VoteAbstained        *int     `json:"vote_abstained"`
	Confidence           *float64 `json:"confidence"`
}

func newTranscriptResponse(t *database.Transcript, records []database.DiscussionRecord) TranscriptResponse {
	response := TranscriptResponse{
		TranscriptID:   t.TranscriptID,
		CommitteeID:    t.CommitteeID,
		Type:           t.Type,
		WordCount:      t.WordCount,
		CharacterCount: t.CharacterCount,
		Metadata:       t.Metadata,
		UpdatedAt:      t.UpdatedAt,
		Discussions:    make([]DiscussionResponse, 0, len(records)),
	}
	if t.TranscriptDate != nil {
		response.TranscriptDate = t.TranscriptDate.Format("2006-01-02")
	}

	for _, r := range records {
		response.Discussions = append(response.Discussions, DiscussionResponse{
			ExtractionType:       r.ExtractionType,
			BillIdentifier:       r.BillIdentifier,
			BillID:               r.BillID,
			ProposerName:         r.ProposerName,
			AmendmentType:        r.AmendmentType,
			AmendmentDescription: r.AmendmentDescription,
			Status:               r.Status,
			VoteFor:              r.VoteFor,
			VoteAgainst:          r.VoteAgainst,
			VoteAbstained:        r.VoteAbstained,
			Confidence:           r.Confidence,
		})
	}

	return response
}
