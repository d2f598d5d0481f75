package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// Actions reported to the external event module.
const (
	ActionAllocated   = "allocated"
	ActionDeallocated = "deallocated"
	ActionReturned    = "returned"
)

// Notifier pushes allocation lifecycle events to an external endpoint. A nil
// *Webhook is a valid no-op notifier, so callers never need to branch on
// whether notifications are configured.
type Notifier interface {
	Notify(ctx context.Context, action string, a *model.Allocation)
}

// Webhook posts JSON payloads to a configured URL.
type Webhook struct {
	httpClient *resty.Client
}

// NewWebhook builds a webhook notifier. Returns nil when url is empty,
// which disables notifications.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}

	client := resty.New()
	client.
		SetBaseURL(url).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Webhook{httpClient: client}
}

type payload struct {
	Action       string `json:"action"`
	AllocationID int64  `json:"allocation_id"`
	EventID      int64  `json:"event_id"`
	EventName    string `json:"event_name,omitempty"`
	MaterialID   int64  `json:"material_id"`
	MaterialName string `json:"material_name,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Quantity     int    `json:"quantity"`
}

// Notify posts one lifecycle notification. Failures are logged and swallowed:
// the transaction is already committed, and the webhook is informational only.
func (n *Webhook) Notify(ctx context.Context, action string, a *model.Allocation) {
	if n == nil {
		return
	}

	body := payload{
		Action:       action,
		AllocationID: a.ID,
		EventID:      a.EventID,
		EventName:    a.EventName,
		MaterialID:   a.MaterialID,
		MaterialName: a.MaterialName,
		SerialNumber: a.SerialNumber,
		Outcome:      a.Outcome,
		Quantity:     a.Quantity,
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("")
	if err != nil {
		slog.Warn("webhook delivery failed", "allocation", a.ID, "action", action, "error", err)
		return
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		slog.Warn("webhook rejected", "allocation", a.ID, "action", action,
			"status", fmt.Sprintf("%d", resp.StatusCode()))
	}
}
