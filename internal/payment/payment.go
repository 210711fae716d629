package payment

import "context"

const ProviderStripe = "STRIPE"

// Gateway is the hosted-checkout payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}
