package database

import (
	"database/sql"
	"fmt"
)

var _ CommitteeRepository = (*committeeRepository)(nil)

type committeeRepository struct {
	db *DB
}

func NewCommitteeRepository(db *DB) CommitteeRepository {
	return &committeeRepository{db: db}
}

func (r *committeeRepository) UpsertCommittee(committee Committee) error {
	var committeeTypeID sql.NullInt64
	if committee.CommitteeTypeID != nil {
		committeeTypeID = sql.NullInt64{Int64: *committee.CommitteeTypeID, Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO committees (committee_id, committee_type_id, name, date_from, date_to)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (committee_id) DO UPDATE SET
			committee_type_id = excluded.committee_type_id,
			name = excluded.name,
			date_from = excluded.date_from,
			date_to = excluded.date_to,
			updated_at = CURRENT_TIMESTAMP
	`, committee.CommitteeID, committeeTypeID, committee.Name, committee.DateFrom, committee.DateTo)
	if err != nil {
		return fmt.Errorf("failed to upsert committee: %w", err)
	}

	return nil
}

func (r *committeeRepository) GetCommittees() ([]Committee, error) {
	rows, err := r.db.Query(`
		SELECT id, committee_id, committee_type_id, name,
		       COALESCE(date_from, ''), COALESCE(date_to, ''), created_at, updated_at
		FROM committees
		ORDER BY committee_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get committees: %w", err)
	}
	defer rows.Close()

	var committees []Committee
	for rows.Next() {
		var committee Committee
		var committeeTypeID sql.NullInt64
		err := rows.Scan(&committee.ID, &committee.CommitteeID, &committeeTypeID, &committee.Name,
			&committee.DateFrom, &committee.DateTo, &committee.CreatedAt, &committee.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan committee row: %w", err)
		}
		committee.CommitteeTypeID = int64Ptr(committeeTypeID)
		committees = append(committees, committee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating committee rows: %w", err)
	}

	return committees, nil
}

func (r *committeeRepository) GetCommitteeCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM committees").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get committee count: %w", err)
	}
	return count, nil
}
