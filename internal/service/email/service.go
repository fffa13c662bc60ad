package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CodeNow/pheidi-sub000/pkg/config"
)

// Template identifiers for billing and trial notifications.
const (
	TemplatePaymentMethodAdded   = "payment-method-added"
	TemplatePaymentMethodRemoved = "payment-method-removed"
	TemplateTrialEnding          = "trial-ending"
	TemplateTrialEnded           = "trial-ended"
)

// Message is one transactional email send.
type Message struct {
	To            []string
	TemplateID    string
	Substitutions map[string]string
}

// Service is a thin client for the transactional email API. Failures are
// plain errors and follow the caller's retry policy.
type Service struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
	logger *slog.Logger
}

// New constructs an email service. Sends are no-ops without an API key.
func New(cfg config.WorkerConfig, logger *slog.Logger) Service {
	return Service{
		apiURL: strings.TrimRight(cfg.EmailAPIURL, "/"),
		apiKey: cfg.EmailAPIKey,
		from:   cfg.EmailFromAddress,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Send delivers one templated message.
func (s Service) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		s.logger.Debug("email api not configured, dropping message", "template", msg.TemplateID)
		return nil
	}
	if len(msg.To) == 0 {
		return errors.New("email message has no recipients")
	}

	payload := map[string]any{
		"from":          map[string]string{"email": s.from},
		"to":            msg.To,
		"template_id":   msg.TemplateID,
		"substitutions": msg.Substitutions,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/mail/send", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("email api rejected message: %s", resp.Status)
	}
	s.logger.Info("email sent", "template", msg.TemplateID, "recipients", len(msg.To))
	return nil
}
