package checkout

import "context"

// LineItem is one priced row on the hosted payment page, in minor units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	Currency   string
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the gateway's view of a checkout attempt.
type Session struct {
	ID               string
	URL              string
	Paid             bool
	PaymentReference string
	// AmountTotal is what the customer was charged, in minor units.
	AmountTotal int64
	Metadata    map[string]string
}

type WebhookEvent struct {
	Type    string
	Session *Session
}

const EventCheckoutCompleted = "checkout.session.completed"

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	// ParseWebhook verifies the signature and decodes the event. Session is
	// set only for checkout session events.
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
