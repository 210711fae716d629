package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencyEUR = "eur"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64 // minor units
	Quantity    int
}

type CreateSessionInput struct {
	LineItems         []LineItem
	Currency          string
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReference   string
	ShippingCountries []string
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

// Format renders "line1, city, postal code, country" with line2 appended
// when present.
func (a Address) Format() string {
	out := strings.Join([]string{a.Line1, a.City, a.PostalCode, a.Country}, ", ")
	if a.Line2 != "" {
		out += ", " + a.Line2
	}
	return out
}

// Session is the provider's view of one hosted checkout.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	ClientReference string
	CustomerEmail   string
	Address         *Address
}

func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// ToMinorUnits converts a decimal amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// WebhookEvent is one entry of the payment_webhooks log.
type WebhookEvent struct {
	ID             int64
	Provider       string
	EventID        string
	EventType      string
	ExternalID     string
	Payload        json.RawMessage
	SignatureValid bool
	ProcessedAt    *time.Time
	ProcessError   *string
}
