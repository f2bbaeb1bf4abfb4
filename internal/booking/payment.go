package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BankSlipValidity is how long a bank slip stays payable after it is issued.
const BankSlipValidity = 30 * 24 * time.Hour

// PaymentRequest is the caller supplied payment selection.  Pointer
// fields distinguish "absent" from zero.
type PaymentRequest struct {
	Type                model.PaymentType `json:"payment_type"`
	InstallmentQuantity *int              `json:"installment_quantity"`
	IsOnline            bool              `json:"is_online"`
	CreditCardID        *uint64           `json:"credit_card_id"`
}

// ResolveInput carries everything a payment constructor needs.
type ResolveInput struct {
	Request     PaymentRequest
	AmountCents int64
	Actor       Actor
	// SelfBooking is false when an operator books on behalf of a guest.
	SelfBooking bool
	Now         time.Time
}

// CardFinder looks up a registered credit card.  A missing card must be
// reported with an error matching ErrNotFound.
type CardFinder interface {
	GetCreditCard(ctx context.Context, id uint64) (model.CreditCard, error)
}

type paymentConstructor func(ctx context.Context, cards CardFinder, in ResolveInput) (model.Payment, error)

// paymentConstructors maps every payment type code to its constructor.
var paymentConstructors = map[model.PaymentType]paymentConstructor{
	model.PaymentCash:     newCashPayment,
	model.PaymentCard:     newCardPayment,
	model.PaymentPix:      newPixPayment,
	model.PaymentBankSlip: newBankSlipPayment,
}

// ResolvePayment builds the payment variant selected by in.Request and
// validates its method specific rules.  The result has no ID; it is
// assigned when the payment is stored.
func ResolvePayment(ctx context.Context, cards CardFinder, in ResolveInput) (model.Payment, error) {
	build, ok := paymentConstructors[in.Request.Type]
	if !ok {
		return model.Payment{}, badRequest("unknown payment type %d", uint8(in.Request.Type))
	}
	if in.AmountCents < 0 {
		return model.Payment{}, badRequest("payment amount must not be negative")
	}
	return build(ctx, cards, in)
}

func newCashPayment(_ context.Context, _ CardFinder, in ResolveInput) (model.Payment, error) {
	if in.Request.IsOnline {
		return model.Payment{}, badRequest("cash payments cannot be online")
	}
	return model.Payment{Type: model.PaymentCash, AmountCents: in.AmountCents}, nil
}

func newPixPayment(_ context.Context, _ CardFinder, in ResolveInput) (model.Payment, error) {
	if in.Request.IsOnline {
		return model.Payment{}, badRequest("pix payments cannot be flagged online")
	}
	return model.Payment{Type: model.PaymentPix, AmountCents: in.AmountCents}, nil
}

func newBankSlipPayment(_ context.Context, _ CardFinder, in ResolveInput) (model.Payment, error) {
	if in.Request.IsOnline {
		return model.Payment{}, badRequest("bank slip payments cannot be flagged online")
	}
	return model.Payment{
		Type:        model.PaymentBankSlip,
		AmountCents: in.AmountCents,
		BankSlip:    &model.BankSlipPayment{ExpirationDate: Day(in.Now.Add(BankSlipValidity))},
	}, nil
}

func newCardPayment(ctx context.Context, cards CardFinder, in ResolveInput) (model.Payment, error) {
	req := in.Request
	if req.InstallmentQuantity == nil || *req.InstallmentQuantity < 1 {
		return model.Payment{}, badRequest("card payments require an installment quantity of at least 1")
	}
	p := model.Payment{
		Type:        model.PaymentCard,
		AmountCents: in.AmountCents,
		IsOnline:    req.IsOnline,
		Card:        &model.CardPayment{InstallmentQuantity: *req.InstallmentQuantity},
	}
	if !req.IsOnline {
		return p, nil
	}
	if !in.SelfBooking {
		return model.Payment{}, badRequest("online card payments can only be made by the guest")
	}
	if req.CreditCardID == nil {
		return model.Payment{}, badRequest("online card payments require a credit card id")
	}
	if cards == nil {
		return model.Payment{}, errors.New("no credit card source configured")
	}
	card, err := cards.GetCreditCard(ctx, *req.CreditCardID)
	if err != nil {
		return model.Payment{}, err
	}
	if card.UserID != in.Actor.UserID {
		return model.Payment{}, fmt.Errorf("%w: credit card %d belongs to another user", ErrForbidden, card.ID)
	}
	id := card.ID
	p.Card.Brand = card.Brand
	p.Card.LastFourDigits = card.LastFour()
	p.Card.HolderName = card.HolderName
	p.Card.ExpirationYear = card.ExpirationYear
	p.Card.ExpirationMonth = card.ExpirationMonth
	p.Card.CreditCardID = &id
	return p, nil
}
