package repository

import (
	"context"
	"database/sql"

	"github.com/campuseats/campuseats/internal/model"
)

// CollegeRepo reads the 'colleges' table. Colleges are seeded by
// operators, so this repo is read-only.
type CollegeRepo struct{ db *sql.DB }

func NewCollegeRepo(db *sql.DB) *CollegeRepo { return &CollegeRepo{db: db} }

// List returns every college ordered by name.
func (r *CollegeRepo) List(ctx context.Context) ([]model.College, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, city FROM colleges ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.College, 0)
	for rows.Next() {
		var c model.College
		if err := rows.Scan(&c.ID, &c.Name, &c.City); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists reports whether a college ID is real. The wizard validates
// the picked college against this before saving.
func (r *CollegeRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM colleges WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
