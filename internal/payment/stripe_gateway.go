package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"essenza-be/internal/logger"

	"go.uber.org/zap"
)

const stripeBaseURL = "https://api.stripe.com"

type stripeGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// ----------------- Constructor -----------------

func NewStripeGateway(secretKey string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Stripe secret key is empty")
	}

	return &stripeGateway{
		secretKey: secretKey,
		baseURL:   stripeBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type stripeAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

type stripeSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	PaymentStatus     string `json:"payment_status"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	CustomerDetails   *struct {
		Email   string         `json:"email"`
		Address *stripeAddress `json:"address"`
	} `json:"customer_details"`
	ShippingDetails *struct {
		Address *stripeAddress `json:"address"`
	} `json:"shipping_details"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s stripeSession) toSession() *Session {
	out := &Session{
		ID:              s.ID,
		URL:             s.URL,
		PaymentStatus:   s.PaymentStatus,
		ClientReference: s.ClientReferenceID,
		CustomerEmail:   s.CustomerEmail,
	}

	var addr *stripeAddress
	if s.CustomerDetails != nil {
		if s.CustomerDetails.Email != "" {
			out.CustomerEmail = s.CustomerDetails.Email
		}
		addr = s.CustomerDetails.Address
	}
	if s.ShippingDetails != nil && s.ShippingDetails.Address != nil {
		addr = s.ShippingDetails.Address
	}
	if addr != nil {
		a := Address(*addr)
		out.Address = &a
	}
	return out
}

// ----------------- CreateSession -----------------

func (g *stripeGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "CreateSession"),
		zap.Int("line_items", len(in.LineItems)),
	)

	currency := in.Currency
	if currency == "" {
		currency = CurrencyEUR
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", in.SuccessURL)
	form.Set("cancel_url", in.CancelURL)
	if in.ClientReference != "" {
		form.Set("client_reference_id", in.ClientReference)
	}
	if in.CustomerEmail != "" {
		form.Set("customer_email", in.CustomerEmail)
	}
	for i, country := range in.ShippingCountries {
		form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}
	for i, item := range in.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var res stripeSession
	if err := g.do(req, &res); err != nil {
		log.Error("stripe create session failed", zap.Error(err))
		return nil, err
	}

	log.Info("stripe checkout session created", zap.String("session_id", res.ID))
	return res.toSession(), nil
}

// ----------------- RetrieveSession -----------------

func (g *stripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "RetrieveSession"),
		zap.String("session_id", sessionID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}

	var res stripeSession
	if err := g.do(req, &res); err != nil {
		log.Error("stripe retrieve session failed", zap.Error(err))
		return nil, err
	}

	log.Debug("stripe session retrieved", zap.String("payment_status", res.PaymentStatus))
	return res.toSession(), nil
}

func (g *stripeGateway) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se stripeError
		if json.Unmarshal(body, &se) == nil && se.Error.Message != "" {
			return fmt.Errorf("stripe error (%d): %s", resp.StatusCode, se.Error.Message)
		}
		return fmt.Errorf("stripe error (%d): %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}
