package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/api/responses"
	paymentsvc "github.com/luisargote/vendora-backend/internal/payments"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

// GatewayHeader identifies which payment gateway delivered the notification.
const GatewayHeader = "X-Gateway-Id"

type PaymentWebhookService interface {
	HandleWebhook(ctx context.Context, input paymentsvc.WebhookInput) (*models.Payment, error)
}

// gatewayEvent is the gateway's event envelope. The payment reference
// travels either as metadata inside the nested payment object or as the
// gateway-assigned transaction id.
type gatewayEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				Metadata struct {
					PaymentUUID string `json:"payment_uuid"`
				} `json:"metadata"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// GatewayWebhook reconciles payment state from gateway server-to-server
// notifications.
func GatewayWebhook(svc PaymentWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event gatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode event"))
			return
		}

		input := paymentsvc.WebhookInput{
			GatewayID:       strings.TrimSpace(r.Header.Get(GatewayHeader)),
			EventID:         strings.TrimSpace(event.EventID),
			TransactionID:   strings.TrimSpace(event.Data.Object.Payment.ID),
			Status:          statusFromEvent(event),
			GatewayResponse: payload,
		}
		if raw := strings.TrimSpace(event.Data.Object.Payment.Metadata.PaymentUUID); raw != "" {
			paymentID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "invalid payment reference"))
				return
			}
			input.PaymentID = &paymentID
		}

		payment, err := svc.HandleWebhook(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("gateway event %s processed", event.EventID))
		}
		responses.WriteSuccess(w, map[string]string{
			"payment_uuid": payment.ID.String(),
			"status":       string(payment.Status),
		})
	}
}

// statusFromEvent maps the gateway event type onto a payment status; event
// types that carry no implied state fall back to the embedded status field.
func statusFromEvent(event gatewayEvent) string {
	switch event.Type {
	case "payment.completed":
		return "completed"
	case "payment.failed":
		return "failed"
	}
	return strings.ToLower(strings.TrimSpace(event.Data.Object.Payment.Status))
}
