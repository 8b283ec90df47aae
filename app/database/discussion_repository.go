package database

import (
	"database/sql"
	"fmt"
	"slices"
)

var _ DiscussionRepository = (*discussionRepository)(nil)

type discussionRepository struct {
	db *DB
}

func NewDiscussionRepository(db *DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) SaveDiscussions(transcriptID int64, extractionTypes []string, records []DiscussionRecord, replace bool) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		for _, extractionType := range extractionTypes {
			_, err := tx.Exec("DELETE FROM discussions WHERE transcript_id = ? AND extraction_type = ?", transcriptID, extractionType)
			if err != nil {
				return 0, fmt.Errorf("failed to delete discussions: %w", err)
			}
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO discussions (
			transcript_id, bill_id, extraction_type, bill_identifier, proposer_name,
			amendment_type, amendment_description, status,
			vote_for, vote_against, vote_abstained, confidence, raw_context, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare discussion insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, record := range records {
		metadata, err := encodeMetadata(record.Metadata)
		if err != nil {
			return 0, err
		}

		_, err = stmt.Exec(transcriptID, record.BillID, record.ExtractionType, record.BillIdentifier,
			record.ProposerName, record.AmendmentType, record.AmendmentDescription, record.Status,
			record.VoteFor, record.VoteAgainst, record.VoteAbstained, record.Confidence,
			record.RawContext, metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to insert discussion: %w", err)
		}
		written++
	}

	// A run is recorded per type even when it produced no rows.
	for _, extractionType := range markedTypes(extractionTypes, records) {
		_, err := tx.Exec(`
			INSERT INTO extractions (transcript_id, extraction_type, record_count)
			VALUES (?, ?, (SELECT COUNT(*) FROM discussions WHERE transcript_id = ? AND extraction_type = ?))
			ON CONFLICT (transcript_id, extraction_type) DO UPDATE SET
				record_count = excluded.record_count,
				analyzed_at = CURRENT_TIMESTAMP
		`, transcriptID, extractionType, transcriptID, extractionType)
		if err != nil {
			return 0, fmt.Errorf("failed to record extraction run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit discussions: %w", err)
	}

	return written, nil
}

func markedTypes(extractionTypes []string, records []DiscussionRecord) []string {
	types := slices.Clone(extractionTypes)
	for _, record := range records {
		if !slices.Contains(types, record.ExtractionType) {
			types = append(types, record.ExtractionType)
		}
	}
	return types
}

func (r *discussionRepository) GetDiscussions(transcriptID int64, extractionType string) ([]DiscussionRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, transcript_id, bill_id, extraction_type, bill_identifier, proposer_name,
		       amendment_type, amendment_description, status,
		       vote_for, vote_against, vote_abstained, confidence, raw_context, metadata, created_at
		FROM discussions
		WHERE transcript_id = ? AND (? = '' OR extraction_type = ?)
		ORDER BY id
	`, transcriptID, extractionType, extractionType)
	if err != nil {
		return nil, fmt.Errorf("failed to get discussions: %w", err)
	}
	defer rows.Close()

	var records []DiscussionRecord
	for rows.Next() {
		var record DiscussionRecord
		var billID, voteFor, voteAgainst, voteAbstained sql.NullInt64
		var confidence sql.NullFloat64
		var metadata string

		err := rows.Scan(&record.ID, &record.TranscriptID, &billID, &record.ExtractionType,
			&record.BillIdentifier, &record.ProposerName, &record.AmendmentType,
			&record.AmendmentDescription, &record.Status, &voteFor, &voteAgainst, &voteAbstained,
			&confidence, &record.RawContext, &metadata, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discussion row: %w", err)
		}

		record.BillID = int64Ptr(billID)
		record.VoteFor = intPtr(voteFor)
		record.VoteAgainst = intPtr(voteAgainst)
		record.VoteAbstained = intPtr(voteAbstained)
		if confidence.Valid {
			c := confidence.Float64
			record.Confidence = &c
		}

		record.Metadata, err = decodeMetadata(metadata)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discussion rows: %w", err)
	}

	return records, nil
}

func (r *discussionRepository) CountDiscussions(transcriptID int64, extractionType string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM discussions
		WHERE transcript_id = ? AND (? = '' OR extraction_type = ?)
	`, transcriptID, extractionType, extractionType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count discussions: %w", err)
	}
	return count, nil
}

func (r *discussionRepository) GetDiscussionStats() (*DiscussionStats, error) {
	stats := &DiscussionStats{
		ByStatus:        make(map[string]int),
		ByAmendmentType: make(map[string]int),
	}

	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN confidence >= 0.8 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence < 0.5 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN bill_id IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM discussions
	`).Scan(&stats.Total, &stats.HighConfidence, &stats.LowConfidence, &stats.LinkedToBill)
	if err != nil {
		return nil, fmt.Errorf("failed to get discussion stats: %w", err)
	}

	if err := r.groupCounts("status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := r.groupCounts("amendment_type", stats.ByAmendmentType); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCounts fills counts with per-value totals of column. column is never user input.
func (r *discussionRepository) groupCounts(column string, counts map[string]int) error {
	rows, err := r.db.Query("SELECT " + column + ", COUNT(*) FROM discussions GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("failed to group discussions by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts[value] = count
	}

	return rows.Err()
}
