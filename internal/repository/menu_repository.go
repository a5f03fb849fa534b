package repository

import (
	"context"
	"database/sql"

	"github.com/campuseats/campuseats/internal/model"
)

// MenuRepo manages the 'menu_items' table.
type MenuRepo struct{ db *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

// ListByCanteen returns a canteen's menu ordered by name.
func (r *MenuRepo) ListByCanteen(ctx context.Context, canteenID uint64) ([]model.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, canteen_id, name, price_cents, stock, available FROM menu_items WHERE canteen_id=? ORDER BY name",
		canteenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.MenuItem, 0)
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.CanteenID, &m.Name, &m.PriceCents, &m.Stock, &m.Available); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert creates or updates an item after checking the canteen belongs
// to the caller. A zero item ID inserts; otherwise the existing row is
// updated in place.
func (r *MenuRepo) Upsert(ctx context.Context, ownerID uint64, item *model.MenuItem) error {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT owner_id FROM canteens WHERE id=?", item.CanteenID).Scan(&actualOwner)
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	if item.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			"INSERT INTO menu_items (canteen_id, name, price_cents, stock, available) VALUES (?,?,?,?,?)",
			item.CanteenID, item.Name, item.PriceCents, item.Stock, item.Available)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		item.ID = uint64(id)
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE menu_items SET name=?, price_cents=?, stock=?, available=? WHERE id=? AND canteen_id=?",
		item.Name, item.PriceCents, item.Stock, item.Available, item.ID, item.CanteenID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM menu_items WHERE id=? AND canteen_id=?",
			item.ID, item.CanteenID).Scan(&one); err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
	}
	return nil
}

// DecrementStockTx reserves qty units of an item within the order
// transaction. The guard in the WHERE clause makes overselling a
// conflict instead of a negative stock row.
func (r *MenuRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, itemID uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE menu_items SET stock = stock - ? WHERE id=? AND available=1 AND stock >= ?",
		qty, itemID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Get loads one item.
func (r *MenuRepo) Get(ctx context.Context, itemID uint64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.QueryRowContext(ctx,
		"SELECT id, canteen_id, name, price_cents, stock, available FROM menu_items WHERE id=?",
		itemID).Scan(&m.ID, &m.CanteenID, &m.Name, &m.PriceCents, &m.Stock, &m.Available)
	return m, err
}

// GetTx loads one item with FOR UPDATE inside the order transaction.
func (r *MenuRepo) GetTx(ctx context.Context, tx *sql.Tx, itemID uint64) (model.MenuItem, error) {
	var m model.MenuItem
	err := tx.QueryRowContext(ctx,
		"SELECT id, canteen_id, name, price_cents, stock, available FROM menu_items WHERE id=? FOR UPDATE",
		itemID).Scan(&m.ID, &m.CanteenID, &m.Name, &m.PriceCents, &m.Stock, &m.Available)
	return m, err
}
