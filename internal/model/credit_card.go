package model

import "time"

// CreditCard is a card registered by a user.  Bookings never link to it
// directly: online card payments copy its brand, last four digits,
// holder name and expiration when the payment is resolved.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owner of the card.
//  HolderName      – name printed on the card.
//  Number          – masked card number, only the last four digits are kept.
//  Brand           – card network (VISA, MASTERCARD, ...).
//  ExpirationYear  – four digit expiry year.
//  ExpirationMonth – expiry month, 1-12.
//  CreatedAt       – creation timestamp.
type CreditCard struct {
	ID              uint64    `json:"id"`               // credit_cards.id
	UserID          uint64    `json:"user_id"`          // credit_cards.user_id
	HolderName      string    `json:"holder_name"`      // credit_cards.holder_name
	Number          string    `json:"number"`           // credit_cards.masked_number
	Brand           string    `json:"brand"`            // credit_cards.brand
	ExpirationYear  int       `json:"expiration_year"`  // credit_cards.expiration_year
	ExpirationMonth int       `json:"expiration_month"` // credit_cards.expiration_month
	CreatedAt       time.Time `json:"created_at"`       // credit_cards.created_at
}

// LastFour returns the last four digits of the stored number.
func (c CreditCard) LastFour() string {
	if len(c.Number) <= 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}
