package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/campuseats/campuseats/internal/model"
)

// OrderRepo manages 'orders' and their 'order_items' lines. Line name
// and price are denormalized at placement so menu edits never rewrite
// history.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// validTransitions encodes the forward-only workflow. REJECTED is
// reachable from PLACED only; DELIVERED and REJECTED are terminal.
var validTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPlaced:    {model.OrderAccepted, model.OrderRejected},
	model.OrderAccepted:  {model.OrderPreparing},
	model.OrderPreparing: {model.OrderReady},
	model.OrderReady:     {model.OrderDelivered},
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateTx inserts the order row and its lines inside the caller's
// transaction, then reads the row back for timestamps. Stock must
// already be reserved by the caller.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (student_id, canteen_id, total_cents, status, payment_status) VALUES (?,?,?,?,?)",
		o.StudentID, o.CanteenID, o.TotalCents, string(o.Status), string(o.PaymentStatus))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	if len(o.Lines) > 0 {
		q := "INSERT INTO order_items (order_id, item_id, name, qty, price_cents) VALUES "
		args := make([]any, 0, len(o.Lines)*5)
		for i, l := range o.Lines {
			if i > 0 {
				q += ","
			}
			q += "(?,?,?,?,?)"
			args = append(args, o.ID, l.ItemID, l.Name, l.Qty, l.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM orders WHERE id=?", o.ID).Scan(&o.CreatedAt)
}

// ListByStudent returns a student's orders, newest first, lines
// populated.
func (r *OrderRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.Order, error) {
	return r.list(ctx, "student_id=?", studentID)
}

// ListByCanteenForOwner returns a canteen's orders after verifying the
// caller owns it.
func (r *OrderRepo) ListByCanteenForOwner(ctx context.Context, canteenID, ownerID uint64) ([]model.Order, error) {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT owner_id FROM canteens WHERE id=?", canteenID).Scan(&actualOwner)
	if err != nil {
		return nil, err
	}
	if actualOwner != ownerID {
		return nil, ErrForbidden
	}
	return r.list(ctx, "canteen_id=?", canteenID)
}

func (r *OrderRepo) list(ctx context.Context, cond string, arg any) ([]model.Order, error) {
	q := `SELECT id, student_id, canteen_id, total_cents, status, payment_status, created_at
	      FROM orders WHERE ` + cond + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]model.Order, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var o model.Order
		var status, pay string
		if err := rows.Scan(&o.ID, &o.StudentID, &o.CanteenID, &o.TotalCents, &status, &pay, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = model.OrderStatus(status)
		o.PaymentStatus = model.PaymentStatus(pay)
		o.Lines = []model.OrderLine{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	// One query for every order's lines.
	ids := make([]any, 0, len(orders))
	marks := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		marks = append(marks, "?")
	}
	lineQ := `SELECT order_id, item_id, name, qty, price_cents FROM order_items
	          WHERE order_id IN (` + strings.Join(marks, ",") + `) ORDER BY order_id, id`
	lrows, err := r.db.QueryContext(ctx, lineQ, ids...)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var oid uint64
		var l model.OrderLine
		if err := lrows.Scan(&oid, &l.ItemID, &l.Name, &l.Qty, &l.PriceCents); err != nil {
			return nil, err
		}
		if idx, ok := index[oid]; ok {
			orders[idx].Lines = append(orders[idx].Lines, l)
		}
	}
	return orders, lrows.Err()
}

// GetForOwner loads one order after an ownership check through the
// canteen.
func (r *OrderRepo) GetForOwner(ctx context.Context, orderID, ownerID uint64) (model.Order, error) {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT c.owner_id FROM orders o JOIN canteens c ON c.id = o.canteen_id WHERE o.id=?`,
		orderID).Scan(&actualOwner)
	if err != nil {
		return model.Order{}, err
	}
	if actualOwner != ownerID {
		return model.Order{}, ErrForbidden
	}
	orders, err := r.list(ctx, "id=?", orderID)
	if err != nil {
		return model.Order{}, err
	}
	if len(orders) == 0 {
		return model.Order{}, sql.ErrNoRows
	}
	return orders[0], nil
}

// UpdateStatusForOwner advances an order through the workflow. Illegal
// jumps return ErrConflict, foreign orders ErrForbidden.
func (r *OrderRepo) UpdateStatusForOwner(ctx context.Context, orderID, ownerID uint64, to model.OrderStatus) (model.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback()

	var current string
	var actualOwner uint64
	err = tx.QueryRowContext(ctx,
		`SELECT o.status, c.owner_id FROM orders o
		 JOIN canteens c ON c.id = o.canteen_id
		 WHERE o.id=? FOR UPDATE`, orderID).Scan(&current, &actualOwner)
	if err != nil {
		return model.Order{}, err
	}
	if actualOwner != ownerID {
		return model.Order{}, ErrForbidden
	}
	if !transitionAllowed(model.OrderStatus(current), to) {
		return model.Order{}, ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=?", string(to), orderID); err != nil {
		return model.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Order{}, err
	}
	return r.GetForOwner(ctx, orderID, ownerID)
}

// SetPaymentStatus records the payment collaborator's verdict.
func (r *OrderRepo) SetPaymentStatus(ctx context.Context, orderID uint64, status model.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET payment_status=? WHERE id=?", string(status), orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM orders WHERE id=?", orderID).Scan(&one); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the handle so handlers can open the order placement
// transaction spanning menu and order repos.
func (r *OrderRepo) DB() *sql.DB { return r.db }
