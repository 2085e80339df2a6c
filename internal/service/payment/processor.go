package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"order-fulfillment/internal/dedup"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/tracing"
)

// Result describes what happened to one delivery. HandleWebhook reports
// handling failures here instead of returning them, so the caller still
// acknowledges the delivery.
type Result struct {
	EventID   string
	Type      string
	Handled   bool
	Duplicate bool
	Outcome   string
	Err       error
}

type orderService interface {
	FindForCart(ctx context.Context, cartID, userID int64) (*domain.Order, error)
	CompleteOrder(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, bool, error)
	MarkRefunded(ctx context.Context, paymentRef string) (*domain.Order, bool, error)
}

type publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Processor reconciles orders with payment processor webhooks.
type Processor struct {
	verifier *Verifier
	orders   orderService
	events   publisher
	seen     dedup.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewProcessor(verifier *Verifier, orders orderService, events publisher, seen dedup.Store, m *metrics.Metrics, logger *zap.Logger) *Processor {
	if seen == nil {
		seen = dedup.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		verifier: verifier,
		orders:   orders,
		events:   events,
		seen:     seen,
		metrics:  m,
		logger:   logger,
	}
}

// errDropped marks deliveries that cannot be reconciled and are acknowledged anyway.
var errDropped = errors.New("webhook dropped")

// HandleWebhook verifies and applies one delivery. Only a signature failure
// is returned as an error; it happens before any side effect.
func (p *Processor) HandleWebhook(ctx context.Context, payload []byte, signature string) (_ Result, err error) {
	ctx, span := tracing.Start(ctx, "payment.HandleWebhook")
	defer func() { tracing.End(span, err) }()
	log := logging.FromContext(ctx, p.logger)

	if err := p.verifier.Verify(payload, signature); err != nil {
		p.metrics.WebhookEvent("", metrics.OutcomeRejected)
		log.Warn("webhook signature rejected", zap.Error(err))
		return Result{Outcome: metrics.OutcomeRejected}, err
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		p.metrics.WebhookEvent("", metrics.OutcomeError)
		log.Error("webhook payload unreadable", zap.Error(err))
		return Result{Handled: true, Outcome: metrics.OutcomeError, Err: err}, nil
	}
	span.SetAttributes(attribute.String("webhook.id", env.ID), attribute.String("webhook.type", env.Type))
	log = log.With(zap.String("webhook_id", env.ID), zap.String("webhook_type", env.Type))
	res := Result{EventID: env.ID, Type: env.Type}

	handle := p.handlerFor(env.Type)
	if handle == nil {
		log.Info("unhandled webhook type ignored")
		res.Outcome = metrics.OutcomeIgnored
		p.metrics.WebhookEvent(env.Type, res.Outcome)
		return res, nil
	}

	claimed := false
	if env.ID != "" {
		first, err := p.seen.Claim(ctx, env.ID)
		if err != nil {
			log.Warn("webhook dedup unavailable, processing anyway", zap.Error(err))
		} else if !first {
			log.Info("duplicate webhook ignored")
			res.Handled, res.Duplicate, res.Outcome = true, true, metrics.OutcomeDuplicate
			p.metrics.WebhookEvent(env.Type, res.Outcome)
			return res, nil
		} else {
			claimed = true
		}
	}

	handleErr := handle(ctx, log, env)
	if claimed && handleErr != nil && !errors.Is(handleErr, errDropped) {
		// A resend of this delivery must be applied once the failure clears.
		if err := p.seen.Release(ctx, env.ID); err != nil {
			log.Warn("webhook dedup release failed", zap.Error(err))
		}
	}

	res.Handled = true
	switch {
	case handleErr == nil:
		res.Outcome = metrics.OutcomeSuccess
	case errors.Is(handleErr, errDropped):
		res.Outcome, res.Err = metrics.OutcomeSkipped, handleErr
		log.Warn("webhook not reconciled", zap.Error(handleErr))
	default:
		res.Outcome, res.Err = metrics.OutcomeError, handleErr
		log.Error("webhook handling failed", zap.Error(handleErr))
	}
	p.metrics.WebhookEvent(env.Type, res.Outcome)
	return res, nil
}

type handlerFunc func(ctx context.Context, log *zap.Logger, env Envelope) error

// handlerFor returns nil for event types the processor does not act on.
func (p *Processor) handlerFor(eventType string) handlerFunc {
	switch eventType {
	case TypeCheckoutSessionCompleted:
		return p.handleSessionCompleted
	case TypePaymentIntentFailed:
		return p.handlePaymentFailed
	case TypePaymentIntentSucceeded:
		return p.handlePaymentSucceeded
	case TypeChargeSucceeded:
		return func(_ context.Context, log *zap.Logger, _ Envelope) error {
			log.Info("charge succeeded")
			return nil
		}
	case TypeChargeRefunded:
		return p.handleChargeRefunded
	}
	return nil
}

func (p *Processor) handleSessionCompleted(ctx context.Context, log *zap.Logger, env Envelope) error {
	var session checkoutSession
	if err := json.Unmarshal(env.Data.Object, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	cartID, userID, ok := ParseSessionMetadata(session.Metadata)
	if !ok {
		return fmt.Errorf("%w: session %s has no usable cartId/userId metadata", errDropped, session.ID)
	}

	o, err := p.orders.FindForCart(ctx, cartID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no order for cart %d of user %d", errDropped, cartID, userID)
		}
		return err
	}

	ref := session.PaymentIntent
	if ref == "" {
		ref = session.ID
	}
	o, changed, err := p.orders.CompleteOrder(ctx, o.ID, ref)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	log.Info("checkout session reconciled",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Bool("changed", changed),
	)
	return nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, log *zap.Logger, env Envelope) error {
	var intent paymentIntent
	if err := json.Unmarshal(env.Data.Object, &intent); err != nil {
		return fmt.Errorf("decode payment intent: %w", err)
	}
	userID, ok := parseID(intent.Metadata[MetadataUserID])
	if !ok {
		log.Warn("payment intent has no usable userId metadata, publishing unkeyed", zap.String("payment_intent", intent.ID))
	}
	payload := map[string]any{
		"paymentIntentId": intent.ID,
		"amount":          intent.Amount,
		"currency":        intent.Currency,
	}
	if cartID, ok := parseID(intent.Metadata[MetadataCartID]); ok {
		payload["cartId"] = cartID
	}
	if intent.LastPaymentError != nil {
		payload["reason"] = intent.LastPaymentError.Message
		payload["code"] = intent.LastPaymentError.Code
	}
	log.Info("payment failed", zap.String("payment_intent", intent.ID), zap.Int64("user_id", userID))
	p.publish(ctx, domain.NewOrderEvent(domain.EventPaymentFailed, userID, payload))
	return nil
}

func (p *Processor) handlePaymentSucceeded(ctx context.Context, log *zap.Logger, env Envelope) error {
	var intent paymentIntent
	if err := json.Unmarshal(env.Data.Object, &intent); err != nil {
		return fmt.Errorf("decode payment intent: %w", err)
	}
	log.Info("payment succeeded", zap.String("payment_intent", intent.ID))
	userID, ok := parseID(intent.Metadata[MetadataUserID])
	if !ok {
		return nil
	}
	p.publish(ctx, domain.NewNotificationEvent(domain.EventPaymentSucceeded, userID, map[string]any{
		"paymentIntentId": intent.ID,
		"amount":          intent.Amount,
		"currency":        intent.Currency,
	}))
	return nil
}

func (p *Processor) handleChargeRefunded(ctx context.Context, log *zap.Logger, env Envelope) error {
	var ch charge
	if err := json.Unmarshal(env.Data.Object, &ch); err != nil {
		return fmt.Errorf("decode charge: %w", err)
	}
	if !ch.Refunded {
		log.Info("partial refund recorded without status change",
			zap.String("charge", ch.ID),
			zap.Int64("amount_refunded", ch.AmountRefunded),
		)
		return nil
	}
	ref := ch.PaymentIntent
	if ref == "" {
		ref = ch.ID
	}
	o, changed, err := p.orders.MarkRefunded(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no order paid with %s", errDropped, ref)
		}
		return fmt.Errorf("mark refunded: %w", err)
	}
	log.Info("charge refund reconciled", zap.Int64("order_id", o.ID), zap.Bool("changed", changed))
	return nil
}

func (p *Processor) publish(ctx context.Context, ev domain.Event) {
	if p.events == nil {
		return
	}
	p.events.Publish(ctx, ev)
}
