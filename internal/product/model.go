package product

import "github.com/shopspring/decimal"

type Category string

const (
	CategoryMakeup    Category = "makeup"
	CategoryTreatment Category = "treatment"
	CategoryHair      Category = "hair"
	CategoryPerfume   Category = "perfume"
	CategoryService   Category = "service"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMakeup, CategoryTreatment, CategoryHair, CategoryPerfume, CategoryService:
		return true
	}
	return false
}

type Product struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
}

// Ranked is a product with the quantity sold in the dashboard window.
type Ranked struct {
	Product
	Sold int `json:"sold"`
}
