package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// CreditCardRepo stores the cards users register for online payments.
// Only the masked number is persisted; security codes never reach the
// database.
type CreditCardRepo struct{ db *sql.DB }

// NewCreditCardRepo returns a CreditCardRepo bound to db.
func NewCreditCardRepo(db *sql.DB) *CreditCardRepo { return &CreditCardRepo{db: db} }

const creditCardColumns = `id, user_id, holder_name, masked_number, brand, expiration_year, expiration_month, created_at`

// Create inserts c and fills in its ID and CreatedAt.  c.Number must
// already be masked.
func (r *CreditCardRepo) Create(ctx context.Context, c *model.CreditCard) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (user_id, holder_name, masked_number, brand, expiration_year, expiration_month) VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.HolderName, c.Number, c.Brand, c.ExpirationYear, c.ExpirationMonth)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.db.QueryRowContext(ctx, `SELECT created_at FROM credit_cards WHERE id = ?`, c.ID).Scan(&c.CreatedAt)
}

// GetByID fetches a card using q, which may be a transaction.
func (r *CreditCardRepo) GetByID(ctx context.Context, q querier, id uint64) (model.CreditCard, error) {
	if q == nil {
		q = r.db
	}
	var c model.CreditCard
	err := q.QueryRowContext(ctx, `SELECT `+creditCardColumns+` FROM credit_cards WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.HolderName, &c.Number, &c.Brand, &c.ExpirationYear, &c.ExpirationMonth, &c.CreatedAt)
	return c, notFound(err, "credit card", id)
}

// ListByUser returns a user's cards, newest first.
func (r *CreditCardRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+creditCardColumns+` FROM credit_cards WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CreditCard, 0)
	for rows.Next() {
		var c model.CreditCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.HolderName, &c.Number, &c.Brand, &c.ExpirationYear, &c.ExpirationMonth, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a card owned by userID.
func (r *CreditCardRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, "credit card", id)
}
