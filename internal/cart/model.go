package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Identity names the owner of a cart: an authenticated user or an anonymous
// browser session.
type Identity struct {
	UserID    uint
	SessionID string
}

func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

func (i Identity) valid() bool {
	return i.Authenticated() || i.SessionID != ""
}

// Reference encodes the identity so it can travel through the payment
// provider and come back on confirmation.
func (i Identity) Reference() string {
	if i.Authenticated() {
		return fmt.Sprintf("user:%d", i.UserID)
	}
	return "session:" + i.SessionID
}

func ParseIdentity(ref string) (Identity, error) {
	kind, value, ok := strings.Cut(ref, ":")
	if !ok || value == "" {
		return Identity{}, ErrInvalidIdentity
	}

	switch kind {
	case "user":
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil || id == 0 {
			return Identity{}, ErrInvalidIdentity
		}
		return Identity{UserID: uint(id)}, nil
	case "session":
		return Identity{SessionID: value}, nil
	}
	return Identity{}, ErrInvalidIdentity
}

type Line struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a read-only view of a cart at one point in time.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
