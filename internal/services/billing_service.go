package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"

	"github.com/useyours/yours-backend/internal/models"
)

// ErrUnknownTier rejects a checkout request for a tier that isn't configured.
var ErrUnknownTier = errors.New("unknown subscription tier")

// SubscriptionDetails is the user-facing view of an active subscription.
type SubscriptionDetails struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Interval          string    `json:"interval"`
}

// BillingService is the Stripe collaborator. The tier→price-ID map is
// injected at startup rather than living in a process-wide registry, and
// only subscriptions against those prices count as ours.
type BillingService struct {
	store    ResonanceStore
	priceIDs map[string]string
}

func NewBillingService(store ResonanceStore, apiKey string, priceIDs map[string]string) *BillingService {
	stripe.Key = apiKey
	return &BillingService{store: store, priceIDs: priceIDs}
}

func (s *BillingService) knownPrice(priceID string) bool {
	for _, id := range s.priceIDs {
		if id == priceID {
			return true
		}
	}
	return false
}

// ActiveSubscription reports whether the record's Stripe customer has an
// active subscription to one of our prices. Stripe errors degrade to false:
// the gate fails closed.
func (s *BillingService) ActiveSubscription(r *models.Resonance) bool {
	customerID, err := r.StripeCustomerID()
	if err != nil || customerID == "" {
		return false
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(10)

	iter := subscription.List(params)
	for iter.Next() {
		for _, item := range iter.Subscription().Items.Data {
			if item.Price != nil && s.knownPrice(item.Price.ID) {
				return true
			}
		}
	}
	if err := iter.Err(); err != nil {
		slog.Error("stripe subscription check failed", "error", err)
	}
	return false
}

// Details returns the first active subscription, or nil when there is none.
func (s *BillingService) Details(r *models.Resonance) (*SubscriptionDetails, error) {
	customerID, err := r.StripeCustomerID()
	if err != nil {
		return nil, fmt.Errorf("read customer id: %w", err)
	}
	if customerID == "" {
		return nil, nil
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return nil, nil
	}

	sub := iter.Subscription()
	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil, nil
	}
	price := sub.Items.Data[0].Price

	details := &SubscriptionDetails{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		Amount:            price.UnitAmount,
		Currency:          string(price.Currency),
	}
	if price.Recurring != nil {
		details.Interval = string(price.Recurring.Interval)
	}
	return details, nil
}

// Cancel flags every active subscription on our prices to end at period
// close. Access continues until then.
func (s *BillingService) Cancel(r *models.Resonance) error {
	customerID, err := r.StripeCustomerID()
	if err != nil {
		return fmt.Errorf("read customer id: %w", err)
	}
	if customerID == "" {
		return nil
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(10)

	iter := subscription.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		for _, item := range sub.Items.Data {
			if item.Price == nil || !s.knownPrice(item.Price.ID) {
				continue
			}
			_, err := subscription.Update(sub.ID, &stripe.SubscriptionParams{
				CancelAtPeriodEnd: stripe.Bool(true),
			})
			if err != nil {
				return fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
			}
			break
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	return nil
}

// CreateCheckoutSession creates (or reuses) the Stripe customer and returns
// the hosted checkout URL for the requested tier. A newly-created customer
// id is persisted to the record before returning.
func (s *BillingService) CreateCheckoutSession(r *models.Resonance, tier, successURL, cancelURL string) (string, error) {
	priceID, ok := s.priceIDs[tier]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	customerID, err := r.StripeCustomerID()
	if err != nil {
		return "", fmt.Errorf("read customer id: %w", err)
	}

	created := false
	if customerID == "" {
		cust, err := customer.New(&stripe.CustomerParams{})
		if err != nil {
			return "", fmt.Errorf("create stripe customer: %w", err)
		}
		customerID = cust.ID
		created = true
	}

	sess, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if created {
		if err := r.SetStripeCustomerID(customerID); err != nil {
			return "", fmt.Errorf("write customer id: %w", err)
		}
		if err := s.store.Save(r); err != nil {
			return "", fmt.Errorf("save customer id: %w", err)
		}
	}

	return sess.URL, nil
}
