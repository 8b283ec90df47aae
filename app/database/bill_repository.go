package database

import (
	"database/sql"
	"fmt"
)

var _ BillRepository = (*billRepository)(nil)

type billRepository struct {
	db *DB
}

func NewBillRepository(db *DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) UpsertBill(bill Bill) error {
	var committeeID sql.NullInt64
	if bill.CommitteeID != nil {
		committeeID = sql.NullInt64{Int64: *bill.CommitteeID, Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO bills (bill_id, committee_id, title, sign, signature, bill_date, path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bill_id) DO UPDATE SET
			committee_id = COALESCE(excluded.committee_id, bills.committee_id),
			title = excluded.title,
			sign = excluded.sign,
			signature = COALESCE(NULLIF(excluded.signature, ''), bills.signature),
			bill_date = COALESCE(excluded.bill_date, bills.bill_date),
			path = excluded.path,
			updated_at = CURRENT_TIMESTAMP
	`, bill.BillID, committeeID, bill.Title, bill.Sign, bill.Signature, nullDate(bill.BillDate), bill.Path)
	if err != nil {
		return fmt.Errorf("failed to upsert bill: %w", err)
	}

	return nil
}

// FindBillByNumber returns the lowest-id bill whose bill_id equals core or whose
// sign/signature contains it. Ties are not ranked.
func (r *billRepository) FindBillByNumber(core string) (*Bill, error) {
	var bill Bill
	var committeeID sql.NullInt64
	var billDate sql.NullString

	pattern := "%" + core + "%"
	err := r.db.QueryRow(`
		SELECT id, bill_id, committee_id, title, sign, signature, bill_date, path, created_at, updated_at
		FROM bills
		WHERE bill_id = ? OR sign LIKE ? OR signature LIKE ?
		ORDER BY id
		LIMIT 1
	`, core, pattern, pattern).Scan(
		&bill.ID, &bill.BillID, &committeeID, &bill.Title, &bill.Sign, &bill.Signature,
		&billDate, &bill.Path, &bill.CreatedAt, &bill.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bill: %w", err)
	}

	bill.CommitteeID = int64Ptr(committeeID)
	bill.BillDate = parseNullDate(billDate)

	return &bill, nil
}

func (r *billRepository) GetBillCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM bills").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get bill count: %w", err)
	}
	return count, nil
}
