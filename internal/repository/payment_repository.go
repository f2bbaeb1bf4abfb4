package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// PaymentRepo stores booking payments.  Every payment has a row in
// payments plus one row in the table of its variant: cash_payments,
// card_payments, pix_payments or bank_slip_payments.  Variant rows
// reference payments.id with ON DELETE CASCADE, so deleting the base row
// removes the whole payment.
type PaymentRepo struct{}

// NewPaymentRepo returns a PaymentRepo.  All its methods run inside a
// caller supplied transaction.
func NewPaymentRepo() *PaymentRepo { return &PaymentRepo{} }

// CreateTx inserts p for bookingID and fills in p.ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, bookingID uint64, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, payment_type, amount_cents, is_online) VALUES (?, ?, ?, ?)`,
		bookingID, uint8(p.Type), p.AmountCents, p.IsOnline)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	switch p.Type {
	case model.PaymentCash:
		_, err = tx.ExecContext(ctx, `INSERT INTO cash_payments (payment_id) VALUES (?)`, p.ID)
	case model.PaymentPix:
		_, err = tx.ExecContext(ctx, `INSERT INTO pix_payments (payment_id) VALUES (?)`, p.ID)
	case model.PaymentCard:
		c := p.Card
		if c == nil {
			return fmt.Errorf("card payment without card details")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO card_payments (payment_id, installment_quantity, card_brand, last_four_digits, holder_name, expiration_year, expiration_month, credit_card_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, c.InstallmentQuantity, nullString(c.Brand), nullString(c.LastFourDigits), nullString(c.HolderName),
			nullInt(c.ExpirationYear), nullInt(c.ExpirationMonth), c.CreditCardID)
	case model.PaymentBankSlip:
		if p.BankSlip == nil {
			return fmt.Errorf("bank slip payment without expiration date")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bank_slip_payments (payment_id, expiration_date) VALUES (?, ?)`,
			p.ID, p.BankSlip.ExpirationDate)
	default:
		return fmt.Errorf("unknown payment type %d", uint8(p.Type))
	}
	return err
}

// ReplaceTx deletes the booking's current payment and inserts p.
func (r *PaymentRepo) ReplaceTx(ctx context.Context, tx *sql.Tx, bookingID uint64, p *model.Payment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE booking_id = ?`, bookingID); err != nil {
		return err
	}
	return r.CreateTx(ctx, tx, bookingID, p)
}

// DeleteByBookingTx removes the booking's payment.
func (r *PaymentRepo) DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE booking_id = ?`, bookingID)
	return err
}

// paymentColumns are selected by the booking queries, which LEFT JOIN
// the card and bank slip variants.
const paymentColumns = `p.id, p.payment_type, p.amount_cents, p.is_online,
	cp.installment_quantity, cp.card_brand, cp.last_four_digits, cp.holder_name,
	cp.expiration_year, cp.expiration_month, cp.credit_card_id,
	bs.expiration_date`

const paymentJoins = `JOIN payments p ON p.booking_id = b.id
	LEFT JOIN card_payments cp ON cp.payment_id = p.id
	LEFT JOIN bank_slip_payments bs ON bs.payment_id = p.id`

// paymentScan collects the nullable variant columns of one row.
type paymentScan struct {
	p            model.Payment
	typ          uint8
	installments sql.NullInt64
	brand        sql.NullString
	lastFour     sql.NullString
	holder       sql.NullString
	expYear      sql.NullInt64
	expMonth     sql.NullInt64
	cardID       sql.NullInt64
	slipExpires  sql.NullTime
}

func (s *paymentScan) dest() []any {
	return []any{
		&s.p.ID, &s.typ, &s.p.AmountCents, &s.p.IsOnline,
		&s.installments, &s.brand, &s.lastFour, &s.holder,
		&s.expYear, &s.expMonth, &s.cardID,
		&s.slipExpires,
	}
}

func (s *paymentScan) payment() model.Payment {
	p := s.p
	p.Type = model.PaymentType(s.typ)
	switch p.Type {
	case model.PaymentCard:
		c := &model.CardPayment{
			InstallmentQuantity: int(s.installments.Int64),
			Brand:               s.brand.String,
			LastFourDigits:      s.lastFour.String,
			HolderName:          s.holder.String,
			ExpirationYear:      int(s.expYear.Int64),
			ExpirationMonth:     int(s.expMonth.Int64),
		}
		if s.cardID.Valid {
			id := uint64(s.cardID.Int64)
			c.CreditCardID = &id
		}
		p.Card = c
	case model.PaymentBankSlip:
		p.BankSlip = &model.BankSlipPayment{ExpirationDate: s.slipExpires.Time.UTC()}
	case model.PaymentCash, model.PaymentPix:
	}
	return p
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullInt(n int) sql.NullInt64 { return sql.NullInt64{Int64: int64(n), Valid: n != 0} }

// dateOnly strips the clock so DATE columns round-trip cleanly.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
