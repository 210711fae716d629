package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

var statusRank = map[Status]int{
	StatusPreparing: 0,
	StatusShipped:   1,
	StatusDelivered: 2,
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusRank[s]
	return s, ok
}

// ValidateTransition allows staying put or moving forward only.
func ValidateTransition(from, to Status) error {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	if !ok1 || !ok2 || tr < fr {
		return ErrInvalidStatusTransition
	}
	return nil
}

type Order struct {
	ID           uint      `json:"id"`
	UserID       *uint     `json:"user_id,omitempty"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	PlacedAt     time.Time `json:"placed_at"`
	Status       Status    `json:"status"`
	TrackingCode string    `json:"tracking_code"`
	PaymentRef   string    `json:"-"`
	Lines        []Line    `json:"lines"`
}

type Line struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total is derived from the lines; it is never stored.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

type ReportType string

const (
	ReportHistory   ReportType = "history"
	ReportByProduct ReportType = "product"
	ReportByUser    ReportType = "user"
)

// ParseReportType falls back to the sales history for unknown names.
func ParseReportType(raw string) ReportType {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ReportByProduct, ReportByUser:
		return t
	}
	return ReportHistory
}

// ProductSales aggregates order lines per product at their snapshotted prices.
type ProductSales struct {
	ProductID uint
	Name      string
	Sold      int
	Revenue   decimal.Decimal
}

// UserSales aggregates the orders linked to a registered user.
type UserSales struct {
	UserID uint
	Email  string
	Orders int
	Spent  decimal.Decimal
}

// SalesReport carries exactly one of its slices, chosen by Type.
type SalesReport struct {
	Type     ReportType
	Orders   []Order
	Products []ProductSales
	Users    []UserSales
}
