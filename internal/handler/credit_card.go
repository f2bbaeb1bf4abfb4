package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// CardStore persists registered credit cards.
type CardStore interface {
	Create(ctx context.Context, c *model.CreditCard) error
	ListByUser(ctx context.Context, userID uint64) ([]model.CreditCard, error)
	Delete(ctx context.Context, userID, id uint64) error
}

// CreditCardHandler lets a user manage the cards used for online card
// payments.  Only the masked number is stored and the security code is
// checked for shape and then discarded.
type CreditCardHandler struct {
	Cards CardStore
	Log   logrus.FieldLogger
	now   func() time.Time
}

func NewCreditCardHandler(cards CardStore, log logrus.FieldLogger) *CreditCardHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CreditCardHandler{Cards: cards, Log: log, now: time.Now}
}

type creditCardReq struct {
	HolderName      string `json:"holder_name"`
	Number          string `json:"number"`
	CVV             string `json:"cvv"`
	Brand           string `json:"brand"`
	ExpirationYear  int    `json:"expiration_year"`
	ExpirationMonth int    `json:"expiration_month"`
}

// Register handles POST /v1/me/credit-cards.
func (h *CreditCardHandler) Register(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req creditCardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	card, msg := req.card(uid, h.now())
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Cards.Create(c.Request().Context(), &card); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": card})
}

// List handles GET /v1/me/credit-cards.
func (h *CreditCardHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Cards.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Delete handles DELETE /v1/me/credit-cards/:id.  Past card payments keep
// their snapshot.
func (h *CreditCardHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card id"})
	}
	if err := h.Cards.Delete(c.Request().Context(), uid, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// card validates the request and returns the card to store.  A non-empty
// string is the validation message.
func (r creditCardReq) card(userID uint64, now time.Time) (model.CreditCard, string) {
	holder := strings.TrimSpace(r.HolderName)
	if holder == "" {
		return model.CreditCard{}, "holder_name is required"
	}
	digits := strings.NewReplacer(" ", "", "-", "").Replace(r.Number)
	if len(digits) < 13 || len(digits) > 19 || !allDigits(digits) || !luhn(digits) {
		return model.CreditCard{}, "invalid card number"
	}
	cvv := strings.TrimSpace(r.CVV)
	if (len(cvv) != 3 && len(cvv) != 4) || !allDigits(cvv) {
		return model.CreditCard{}, "invalid cvv"
	}
	if r.ExpirationMonth < 1 || r.ExpirationMonth > 12 {
		return model.CreditCard{}, "expiration_month must be 1-12"
	}
	y, m, _ := now.UTC().Date()
	if r.ExpirationYear < y || (r.ExpirationYear == y && r.ExpirationMonth < int(m)) {
		return model.CreditCard{}, "card is expired"
	}
	brand := strings.ToUpper(strings.TrimSpace(r.Brand))
	if detected := detectBrand(digits); detected != "" {
		brand = detected
	}
	if brand == "" {
		return model.CreditCard{}, "brand is required"
	}
	return model.CreditCard{
		UserID:          userID,
		HolderName:      strings.ToUpper(holder),
		Number:          maskNumber(digits),
		Brand:           brand,
		ExpirationYear:  r.ExpirationYear,
		ExpirationMonth: r.ExpirationMonth,
	}, ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// luhn reports whether digits passes the mod 10 checksum.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func detectBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "VISA"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "AMEX"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "MASTERCARD"
	case len(digits) >= 4 && digits[:4] >= "2221" && digits[:4] <= "2720":
		return "MASTERCARD"
	}
	return ""
}

// maskNumber keeps the last four digits.
func maskNumber(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
