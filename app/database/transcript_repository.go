package database

import (
	"database/sql"
	"fmt"
	"strings"
)

var _ TranscriptRepository = (*transcriptRepository)(nil)

type transcriptRepository struct {
	db *DB
}

func NewTranscriptRepository(db *DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

const transcriptColumns = `id, transcript_id, committee_id, type, transcript_date, year, month,
	content_html, content_text, word_count, character_count, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (*Transcript, error) {
	var t Transcript
	var transcriptDate sql.NullString
	var year, month sql.NullInt64
	var metadata string

	err := row.Scan(&t.ID, &t.TranscriptID, &t.CommitteeID, &t.Type, &transcriptDate, &year, &month,
		&t.ContentHTML, &t.ContentText, &t.WordCount, &t.CharacterCount, &metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.TranscriptDate = parseNullDate(transcriptDate)
	t.Year = int(year.Int64)
	t.Month = int(month.Int64)

	t.Metadata, err = decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *transcriptRepository) GetTranscript(transcriptID string) (*Transcript, error) {
	row := r.db.QueryRow("SELECT "+transcriptColumns+" FROM transcripts WHERE transcript_id = ?", transcriptID)

	t, err := scanTranscript(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return t, nil
}

func (r *transcriptRepository) GetTranscriptByID(id int64) (*Transcript, error) {
	row := r.db.QueryRow("SELECT "+transcriptColumns+" FROM transcripts WHERE id = ?", id)

	t, err := scanTranscript(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript by id: %w", err)
	}

	return t, nil
}

func (r *transcriptRepository) GetTranscriptCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get transcript count: %w", err)
	}
	return count, nil
}

func (r *transcriptRepository) GetTranscriptsForExtraction(filter TranscriptFilter) ([]Transcript, error) {
	conditions := []string{"t.content_text != ''"}
	var args []any

	if len(filter.TranscriptIDs) > 0 {
		placeholders := make([]string, len(filter.TranscriptIDs))
		for i, id := range filter.TranscriptIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, "t.transcript_id IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.CommitteeID > 0 {
		conditions = append(conditions, "t.committee_id = ?")
		args = append(args, filter.CommitteeID)
	}

	if filter.From != nil {
		conditions = append(conditions, "t.transcript_date >= ?")
		args = append(args, filter.From.Format(dateLayout))
	}

	if filter.To != nil {
		conditions = append(conditions, "t.transcript_date <= ?")
		args = append(args, filter.To.Format(dateLayout))
	}

	if !filter.IncludeExtracted {
		if filter.ExtractionType == "" || filter.ExtractionType == "all" {
			conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM extractions e WHERE e.transcript_id = t.id)")
		} else {
			conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM extractions e WHERE e.transcript_id = t.id AND e.extraction_type = ?)")
			args = append(args, filter.ExtractionType)
		}
	}

	query := "SELECT " + prefixColumns("t", transcriptColumns) + " FROM transcripts t WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY t.transcript_date DESC, t.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcripts for extraction: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		transcripts = append(transcripts, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcript rows: %w", err)
	}

	return transcripts, nil
}

func (r *transcriptRepository) CreateTranscript(transcript *Transcript) error {
	metadata, err := encodeMetadata(transcript.Metadata)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		INSERT INTO transcripts (
			transcript_id, committee_id, type, transcript_date, year, month,
			content_html, content_text, word_count, character_count, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, transcript.TranscriptID, transcript.CommitteeID, transcript.Type, nullDate(transcript.TranscriptDate),
		nullInt(transcript.Year), nullInt(transcript.Month), transcript.ContentHTML, transcript.ContentText,
		transcript.WordCount, transcript.CharacterCount, metadata)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transcript id: %w", err)
	}
	transcript.ID = id

	return nil
}

// UpdateTranscriptContent rewrites the content, derived text fields and metadata of a stored transcript.
func (r *transcriptRepository) UpdateTranscriptContent(transcript *Transcript) error {
	metadata, err := encodeMetadata(transcript.Metadata)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		UPDATE transcripts
		SET type = ?, transcript_date = ?, year = ?, month = ?,
		    content_html = ?, content_text = ?, word_count = ?, character_count = ?,
		    metadata = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, transcript.Type, nullDate(transcript.TranscriptDate), nullInt(transcript.Year), nullInt(transcript.Month),
		transcript.ContentHTML, transcript.ContentText, transcript.WordCount, transcript.CharacterCount,
		metadata, transcript.ID)
	if err != nil {
		return fmt.Errorf("failed to update transcript content: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transcript %d not found", transcript.ID)
	}

	return nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
