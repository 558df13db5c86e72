// Package adapters bridges pipeline events to collaborators outside this
// service.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"
)

const defaultDealServiceTimeout = 10 * time.Second

// DealAdvanceForwarder posts DealAutoAdvanceDue events to the deal service,
// which picks the destination stage. Without a webhook URL it only logs.
type DealAdvanceForwarder struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

type advanceDueRequest struct {
	CompanyID      string    `json:"companyId"`
	DealID         string    `json:"dealId"`
	FromStageID    string    `json:"fromStageId"`
	FromStageName  string    `json:"fromStageName"`
	EnteredStageAt time.Time `json:"enteredStageAt"`
	EligibleAt     time.Time `json:"eligibleAt"`
}

func NewDealAdvanceForwarder(cfg config.DealServiceConfig, log *logger.Logger) *DealAdvanceForwarder {
	timeout := cfg.GetDealServiceTimeout()
	if timeout <= 0 {
		timeout = defaultDealServiceTimeout
	}
	return &DealAdvanceForwarder{
		url:  strings.TrimSpace(cfg.GetDealServiceAdvanceWebhookURL()),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// RegisterHandlers subscribes the forwarder to auto-advance events.
func (f *DealAdvanceForwarder) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DealAutoAdvanceDue{}.EventName(), f)
}

// Handle implements events.Handler.
func (f *DealAdvanceForwarder) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DealAutoAdvanceDue)
	if !ok {
		return nil
	}
	if f.url == "" {
		f.log.Info("deal auto-advance due; no deal service webhook configured",
			"companyId", e.CompanyID, "dealId", e.DealID, "fromStageId", e.FromStageID)
		return nil
	}
	return f.forward(ctx, e)
}

func (f *DealAdvanceForwarder) forward(ctx context.Context, e events.DealAutoAdvanceDue) error {
	body, err := json.Marshal(advanceDueRequest{
		CompanyID:      e.CompanyID.String(),
		DealID:         e.DealID.String(),
		FromStageID:    e.FromStageID.String(),
		FromStageName:  e.FromStageName,
		EnteredStageAt: e.EnteredStageAt,
		EligibleAt:     e.EligibleAt,
	})
	if err != nil {
		return fmt.Errorf("marshal auto-advance payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey(e))

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("deal service request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("deal service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	f.log.Info("deal auto-advance forwarded", "dealId", e.DealID, "fromStageId", e.FromStageID, "status", resp.StatusCode)
	return nil
}

func idempotencyKey(e events.DealAutoAdvanceDue) string {
	return e.DealID.String() + ":" + e.FromStageID.String() + ":" + strconv.FormatInt(e.EnteredStageAt.Unix(), 10)
}

// Compile-time check.
var _ events.Handler = (*DealAdvanceForwarder)(nil)
