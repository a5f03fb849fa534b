package repository

import (
	"context"
	"database/sql"

	"github.com/campuseats/campuseats/internal/model"
)

// CanteenRepo manages the 'canteens' table. Exactly one canteen per
// owner; the row is created when onboarding completes.
type CanteenRepo struct{ db *sql.DB }

func NewCanteenRepo(db *sql.DB) *CanteenRepo { return &CanteenRepo{db: db} }

// CreateTx inserts the owner's canteen inside the onboarding
// completion transaction. A second insert for the same owner is a
// no-op returning the existing row's ID.
func (r *CanteenRepo) CreateTx(ctx context.Context, tx *sql.Tx, ownerID, collegeID uint64, name string) (uint64, error) {
	var existing uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM canteens WHERE owner_id=? LIMIT 1", ownerID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO canteens (owner_id, college_id, name, is_open) VALUES (?,?,?,0)",
		ownerID, collegeID, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// IDByOwner returns the owner's canteen ID, or nil when onboarding has
// not created one yet.
func (r *CanteenRepo) IDByOwner(ctx context.Context, ownerID uint64) (*uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM canteens WHERE owner_id=? LIMIT 1", ownerID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// GetByOwner returns the owner's canteen.
func (r *CanteenRepo) GetByOwner(ctx context.Context, ownerID uint64) (model.Canteen, error) {
	var c model.Canteen
	err := r.db.QueryRowContext(ctx,
		"SELECT id, owner_id, college_id, name, is_open, created_at FROM canteens WHERE owner_id=? LIMIT 1",
		ownerID).Scan(&c.ID, &c.OwnerID, &c.CollegeID, &c.Name, &c.IsOpen, &c.CreatedAt)
	return c, err
}

// ListVerifiedByCollege returns the canteens students may order from:
// owner approved, same college.
func (r *CanteenRepo) ListVerifiedByCollege(ctx context.Context, collegeID uint64) ([]model.Canteen, error) {
	const q = `SELECT c.id, c.owner_id, c.college_id, c.name, c.is_open, c.created_at
	           FROM canteens c
	           JOIN users u ON u.id = c.owner_id
	           WHERE c.college_id = ? AND u.admin_verified = 1
	           ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q, collegeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Canteen, 0)
	for rows.Next() {
		var c model.Canteen
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.CollegeID, &c.Name, &c.IsOpen, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetOpen flips the open flag of the owner's canteen. ErrForbidden
// when the owner has no canteen, which also covers mismatched IDs.
func (r *CanteenRepo) SetOpen(ctx context.Context, ownerID uint64, open bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE canteens SET is_open=? WHERE owner_id=?", open, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Could also mean the flag already had that value; confirm.
		var id uint64
		if err := r.db.QueryRowContext(ctx,
			"SELECT id FROM canteens WHERE owner_id=? LIMIT 1", ownerID).Scan(&id); err == sql.ErrNoRows {
			return ErrForbidden
		} else if err != nil {
			return err
		}
	}
	return nil
}
