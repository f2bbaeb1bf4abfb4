package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentType is the discriminator of the Payment union.  The numeric
// values are the codes clients send when selecting a payment method.
type PaymentType uint8

const (
	PaymentCash     PaymentType = 1
	PaymentCard     PaymentType = 2
	PaymentPix      PaymentType = 3
	PaymentBankSlip PaymentType = 4
)

// PaymentTypes lists every known payment type in code order.
var PaymentTypes = []PaymentType{PaymentCash, PaymentCard, PaymentPix, PaymentBankSlip}

func (t PaymentType) String() string {
	switch t {
	case PaymentCash:
		return "CASH"
	case PaymentCard:
		return "CARD"
	case PaymentPix:
		return "PIX"
	case PaymentBankSlip:
		return "BANK_SLIP"
	}
	return fmt.Sprintf("PaymentType(%d)", uint8(t))
}

// Valid reports whether t is a known payment type code.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentCard, PaymentPix, PaymentBankSlip:
		return true
	}
	return false
}

// CardPayment holds the card fields snapshotted from the user's credit
// card when the payment was resolved.  Later edits to the card do not
// change historical payments.
type CardPayment struct {
	InstallmentQuantity int     // card_payments.installment_quantity
	Brand               string  // card_payments.card_brand
	LastFourDigits      string  // card_payments.last_four_digits
	HolderName          string  // card_payments.holder_name
	ExpirationYear      int     // card_payments.expiration_year
	ExpirationMonth     int     // card_payments.expiration_month
	CreditCardID        *uint64 // card_payments.credit_card_id (nullable, offline card payments have none)
}

// BankSlipPayment holds the bank slip due date.
type BankSlipPayment struct {
	ExpirationDate time.Time // bank_slip_payments.expiration_date
}

// Payment is a tagged union over the four payment methods.  Type selects
// the variant; Card is set only for PaymentCard and BankSlip only for
// PaymentBankSlip.  Cash and PIX carry no extra fields.
type Payment struct {
	ID          uint64           // payments.id
	Type        PaymentType      // payments.payment_type
	AmountCents int64            // payments.amount_cents
	IsOnline    bool             // payments.is_online
	Card        *CardPayment     // card_payments row
	BankSlip    *BankSlipPayment // bank_slip_payments row
}

// WithAmount returns a copy of p carrying a new amount and no ID, ready to
// be inserted as the replacement payment.  Variant payloads are copied so
// the result shares no memory with p.
func (p Payment) WithAmount(amountCents int64) Payment {
	out := Payment{Type: p.Type, AmountCents: amountCents, IsOnline: p.IsOnline}
	switch p.Type {
	case PaymentCard:
		if p.Card != nil {
			c := *p.Card
			out.Card = &c
		}
	case PaymentBankSlip:
		if p.BankSlip != nil {
			b := *p.BankSlip
			out.BankSlip = &b
		}
	case PaymentCash, PaymentPix:
	}
	return out
}

type paymentJSON struct {
	ID                  uint64  `json:"id"`
	Type                string  `json:"payment_type"`
	TypeCode            uint8   `json:"payment_type_code"`
	AmountCents         int64   `json:"amount_cents"`
	IsOnline            bool    `json:"is_online"`
	InstallmentQuantity *int    `json:"installment_quantity,omitempty"`
	CardBrand           *string `json:"card_brand,omitempty"`
	LastFourDigits      *string `json:"last_four_digits,omitempty"`
	HolderName          *string `json:"holder_name,omitempty"`
	CardExpiration      *string `json:"card_expiration,omitempty"`
	ExpirationDate      *string `json:"expiration_date,omitempty"`
}

// MarshalJSON flattens the active variant into the payment object.
func (p Payment) MarshalJSON() ([]byte, error) {
	out := paymentJSON{
		ID:          p.ID,
		Type:        p.Type.String(),
		TypeCode:    uint8(p.Type),
		AmountCents: p.AmountCents,
		IsOnline:    p.IsOnline,
	}
	switch p.Type {
	case PaymentCard:
		if c := p.Card; c != nil {
			exp := fmt.Sprintf("%02d/%04d", c.ExpirationMonth, c.ExpirationYear)
			out.InstallmentQuantity = &c.InstallmentQuantity
			if c.Brand != "" {
				out.CardBrand = &c.Brand
				out.LastFourDigits = &c.LastFourDigits
				out.HolderName = &c.HolderName
				out.CardExpiration = &exp
			}
		}
	case PaymentBankSlip:
		if b := p.BankSlip; b != nil {
			d := b.ExpirationDate.Format(DateLayout)
			out.ExpirationDate = &d
		}
	case PaymentCash, PaymentPix:
	}
	return json.Marshal(out)
}
