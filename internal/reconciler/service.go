package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/sheetsync-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/sheetsync-backend/pkg/errors"
)

// ErrCustomerDeleted is returned when a display-name lookup hits a
// customer the provider reports as deleted; a deleted customer is never
// newly appended to the sheet.
var ErrCustomerDeleted = errors.New("customer is deleted")

// UnsupportedEventTypeError marks event kinds outside the handled set.
type UnsupportedEventTypeError struct {
	EventType string
}

func (e *UnsupportedEventTypeError) Error() string {
	return fmt.Sprintf("unexpected event type: %s", e.EventType)
}

// Action is the sheet mutation an event resolved to.
type Action string

const (
	ActionAppended Action = "appended"
	ActionCleared  Action = "cleared"
	ActionNone     Action = "none"
)

// Outcome describes the terminal result of one event. Message is a
// human-readable trace, not a machine contract.
type Outcome struct {
	Action  Action
	Email   string
	Message string
}

// ProviderClient is the slice of the payment provider the reconciler needs.
type ProviderClient interface {
	RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	ListCustomersByEmail(ctx context.Context, email string) ([]*stripe.Customer, error)
}

// SheetStore is the membership/mutation surface of the tracked sheet.
type SheetStore interface {
	ContainsEmail(ctx context.Context, email string) (bool, error)
	Append(ctx context.Context, row tracker.Row) error
	ClearByEmail(ctx context.Context, email string) (bool, error)
}

type ServiceParams struct {
	Provider ProviderClient
	Sheet    SheetStore
	Now      func() time.Time
}

// Service brings the sheet into agreement with current entitlement as of
// event-processing time. Membership checks and mutations are not atomic
// together; concurrent events for one email can race (no per-email
// serialization is attempted).
type Service struct {
	provider ProviderClient
	sheet    SheetStore
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
	}
	if params.Sheet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sheet store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider: params.Provider,
		sheet:    params.Sheet,
		now:      now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
	default:
		return Outcome{}, &UnsupportedEventTypeError{EventType: string(event.Type)}
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
	}
	var hints emailHints
	if err := json.Unmarshal(event.Data.Raw, &hints); err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode email hints")
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	email, err := s.resolveEmail(ctx, hints, customerID)
	if err != nil {
		return Outcome{}, err
	}
	if email == "" {
		return noOp(email, "no email on event or customer; nothing to sync"), nil
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return s.handleCreated(ctx, &sub, customerID, email)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return s.handleUpdated(ctx, &sub, customerID, email)
	default:
		return s.handleDeleted(ctx, customerID, email)
	}
}

// emailHints are the optional email fields some event payloads embed.
type emailHints struct {
	Email         string `json:"email"`
	CustomerEmail string `json:"customer_email"`
}

func (s *Service) handleCreated(ctx context.Context, sub *stripe.Subscription, customerID, email string) (Outcome, error) {
	present, err := s.sheet.ContainsEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	active, err := s.hasActiveSubscription(ctx, customerID)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case active && !present:
		return s.appendRow(ctx, sub, customerID, email)
	case active:
		return noOp(email, fmt.Sprintf("active subscription found for %s; already in sheet", email)), nil
	default:
		return noOp(email, fmt.Sprintf("no active subscription for customer %s; nothing to sync", customerID)), nil
	}
}

func (s *Service) handleUpdated(ctx context.Context, sub *stripe.Subscription, customerID, email string) (Outcome, error) {
	present, err := s.sheet.ContainsEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}

	// Entitlement is per-email, not per-id: one human can hold several
	// customer records under the same email (e.g. a resubscription after
	// a card change), and a superseded id must not read as "no longer
	// entitled".
	entitled, err := s.hasActiveSubscription(ctx, customerID)
	if err != nil {
		return Outcome{}, err
	}
	if !entitled {
		entitled, err = s.hasActiveSubscriptionByEmail(ctx, email)
		if err != nil {
			return Outcome{}, err
		}
	}

	switch {
	case entitled && !present:
		return s.appendRow(ctx, sub, customerID, email)
	case entitled:
		return noOp(email, fmt.Sprintf("active subscription found for %s; already in sheet", email)), nil
	case present:
		return s.clearRow(ctx, email)
	default:
		return noOp(email, fmt.Sprintf("no active subscription for %s; nothing to clear", email)), nil
	}
}

func (s *Service) handleDeleted(ctx context.Context, customerID, email string) (Outcome, error) {
	// Re-check entitlement: a deletion webhook can race a concurrent
	// resubscription, and the customer may hold other subscriptions.
	active, err := s.hasActiveSubscription(ctx, customerID)
	if err != nil {
		return Outcome{}, err
	}
	if active {
		return noOp(email, fmt.Sprintf("subscription still active for customer %s; row kept", customerID)), nil
	}
	return s.clearRow(ctx, email)
}

func (s *Service) appendRow(ctx context.Context, sub *stripe.Subscription, customerID, email string) (Outcome, error) {
	name, err := s.displayName(ctx, customerID)
	if err != nil {
		return Outcome{}, err
	}

	createdAt := s.now()
	if sub.Created > 0 {
		createdAt = time.Unix(sub.Created, 0)
	}

	row := tracker.Row{
		SubscriptionID: sub.ID,
		Email:          email,
		Name:           name,
		CreatedAt:      createdAt,
		ProcessedAt:    s.now(),
	}
	if err := s.sheet.Append(ctx, row); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:  ActionAppended,
		Email:   email,
		Message: fmt.Sprintf("row written for %s", email),
	}, nil
}

func (s *Service) clearRow(ctx context.Context, email string) (Outcome, error) {
	found, err := s.sheet.ClearByEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return noOp(email, fmt.Sprintf("no row found for %s; nothing to clear", email)), nil
	}
	return Outcome{
		Action:  ActionCleared,
		Email:   email,
		Message: fmt.Sprintf("no active subscription; row cleared for %s", email),
	}, nil
}

// resolveEmail takes exactly one path, in priority order: event email
// hint, event customer_email hint, then a provider lookup. A missing or
// deleted customer resolves to an empty email without raising.
func (s *Service) resolveEmail(ctx context.Context, hints emailHints, customerID string) (string, error) {
	if hints.Email != "" {
		return hints.Email, nil
	}
	if hints.CustomerEmail != "" {
		return hints.CustomerEmail, nil
	}
	if customerID == "" {
		return "", nil
	}

	cus, err := s.provider.RetrieveCustomer(ctx, customerID)
	if err != nil {
		if isCustomerMissing(err) {
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve customer")
	}
	if cus == nil || cus.Deleted {
		return "", nil
	}
	return cus.Email, nil
}

// displayName resolves the customer's name, falling back to the
// description, then a placeholder.
func (s *Service) displayName(ctx context.Context, customerID string) (string, error) {
	cus, err := s.provider.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve customer")
	}
	if cus == nil || cus.Deleted {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ErrCustomerDeleted, "resolve display name")
	}
	if cus.Name != "" {
		return cus.Name, nil
	}
	if cus.Description != "" {
		return cus.Description, nil
	}
	return "-", nil
}

func (s *Service) hasActiveSubscription(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	subs, err := s.provider.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return len(subs) > 0, nil
}

func (s *Service) hasActiveSubscriptionByEmail(ctx context.Context, email string) (bool, error) {
	customers, err := s.provider.ListCustomersByEmail(ctx, email)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers by email")
	}
	for _, cus := range customers {
		if cus == nil || cus.ID == "" {
			continue
		}
		active, err := s.hasActiveSubscription(ctx, cus.ID)
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

func isCustomerMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}

func noOp(email, message string) Outcome {
	return Outcome{Action: ActionNone, Email: email, Message: message}
}
