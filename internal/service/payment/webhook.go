package payment

import "encoding/json"

// Webhook event types understood by the processor.
const (
	TypeCheckoutSessionCompleted = "checkout.session.completed"
	TypePaymentIntentSucceeded   = "payment_intent.succeeded"
	TypePaymentIntentFailed      = "payment_intent.payment_failed"
	TypeChargeSucceeded          = "charge.succeeded"
	TypeChargeRefunded           = "charge.refunded"
)

// Envelope is the outer shape of every webhook delivery.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

type paymentIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Refunded       bool              `json:"refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}
