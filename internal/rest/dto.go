package rest

import (
	"time"

	"essenza-be/internal/cart"
	"essenza-be/internal/order"
	"essenza-be/internal/user"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type addItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type trackRequest struct {
	TrackingCode string `json:"tracking_code"`
	Email        string `json:"email"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type lineResponse struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Lines []lineResponse `json:"lines"`
	Total string         `json:"total"`
}

func newCartResponse(s cart.Snapshot) cartResponse {
	lines := make([]lineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, lineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return cartResponse{Lines: lines, Total: s.Total().StringFixed(2)}
}

type orderResponse struct {
	ID           uint           `json:"id,omitempty"`
	UserID       *uint          `json:"user_id,omitempty"`
	TrackingCode string         `json:"tracking_code"`
	Email        string         `json:"email"`
	Address      string         `json:"address"`
	Status       order.Status   `json:"status"`
	PlacedAt     time.Time      `json:"placed_at"`
	Lines        []lineResponse `json:"lines"`
	Total        string         `json:"total"`
}

// newOrderResponse renders an order; internal ids are only shown to admins.
func newOrderResponse(o *order.Order, admin bool) orderResponse {
	lines := make([]lineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, lineResponse{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}

	resp := orderResponse{
		TrackingCode: o.TrackingCode,
		Email:        o.Email,
		Address:      o.Address,
		Status:       o.Status,
		PlacedAt:     o.PlacedAt,
		Lines:        lines,
		Total:        o.Total().StringFixed(2),
	}
	if admin {
		resp.ID = o.ID
		resp.UserID = o.UserID
	}
	return resp
}

func newOrderList(orders []order.Order, admin bool) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i], admin))
	}
	return out
}

type productSalesResponse struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Sold      int    `json:"total_sold"`
	Revenue   string `json:"total_revenue"`
}

type userSalesResponse struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Orders int    `json:"orders"`
	Spent  string `json:"total_spent"`
}

type reportResponse struct {
	Type     order.ReportType       `json:"type"`
	Orders   []orderResponse        `json:"orders,omitempty"`
	Products []productSalesResponse `json:"products,omitempty"`
	Users    []userSalesResponse    `json:"users,omitempty"`
}

func newReportResponse(rep *order.SalesReport) reportResponse {
	resp := reportResponse{Type: rep.Type}
	switch rep.Type {
	case order.ReportByProduct:
		resp.Products = make([]productSalesResponse, 0, len(rep.Products))
		for _, p := range rep.Products {
			resp.Products = append(resp.Products, productSalesResponse{
				ProductID: p.ProductID,
				Name:      p.Name,
				Sold:      p.Sold,
				Revenue:   p.Revenue.StringFixed(2),
			})
		}
	case order.ReportByUser:
		resp.Users = make([]userSalesResponse, 0, len(rep.Users))
		for _, u := range rep.Users {
			resp.Users = append(resp.Users, userSalesResponse{
				UserID: u.UserID,
				Email:  u.Email,
				Orders: u.Orders,
				Spent:  u.Spent.StringFixed(2),
			})
		}
	default:
		resp.Orders = newOrderList(rep.Orders, true)
	}
	return resp
}
