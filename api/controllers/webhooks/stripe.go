package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/sheetsync-backend/api/responses"
	"github.com/angelmondragon/sheetsync-backend/internal/reconciler"
	pkgerrors "github.com/angelmondragon/sheetsync-backend/pkg/errors"
	"github.com/angelmondragon/sheetsync-backend/pkg/logger"
	"github.com/angelmondragon/sheetsync-backend/pkg/metrics"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (reconciler.Outcome, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook reconciles the tracked sheet against Stripe subscription
// lifecycle events.
//
// The endpoint answers in plain text: a trace of the action taken on
// success (true no-ops included), "Webhook Error: <message>" with 400
// when signature verification fails, and "Webhook Error: Unexpected
// event type: <type>" with 500 for unhandled event kinds. The sheet is
// never touched before the signature is verified.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			writeWebhookError(w, http.StatusBadRequest, err.Error())
			return
		}

		if logg != nil {
			ctx = logg.WithEventID(ctx, event.ID)
			ctx = logg.WithEventType(ctx, string(event.Type))
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			writeText(w, http.StatusOK, fmt.Sprintf("event %s already processed", event.ID))
			return
		}

		start := time.Now()
		outcome, err := svc.HandleEvent(ctx, &event)
		webhookMetrics.ObserveDuration(string(event.Type), time.Since(start))
		if err != nil {
			_ = guard.Delete(ctx, event.ID)
			webhookMetrics.IncFailure(string(event.Type))

			var unsupported *reconciler.UnsupportedEventTypeError
			if errors.As(err, &unsupported) {
				writeWebhookError(w, http.StatusInternalServerError, fmt.Sprintf("Unexpected event type: %s", unsupported.EventType))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		webhookMetrics.IncProcessed(string(event.Type), string(outcome.Action))
		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed: %s", event.ID, outcome.Message))
		}
		writeText(w, http.StatusOK, outcome.Message)
	}
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	writeText(w, status, fmt.Sprintf("Webhook Error: %s", message))
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
