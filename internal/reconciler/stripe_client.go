package reconciler

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/angelmondragon/sheetsync-backend/pkg/stripe"
)

type providerClientWrapper struct{}

// NewProviderClient wraps the configured Stripe client so the reconciler
// can be tested against a fake provider.
func NewProviderClient(api *pkgstripe.Client) ProviderClient {
	if api == nil {
		return nil
	}
	return &providerClientWrapper{}
}

func (w *providerClientWrapper) RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return customer.Get(id, params)
}

func (w *providerClientWrapper) ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx

	var subs []*stripe.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	return subs, iter.Err()
}

func (w *providerClientWrapper) ListCustomersByEmail(ctx context.Context, email string) ([]*stripe.Customer, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	var customers []*stripe.Customer
	iter := customer.List(params)
	for iter.Next() {
		customers = append(customers, iter.Customer())
	}
	return customers, iter.Err()
}
