package chat

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CodeNow/pheidi-sub000/pkg/config"
)

// Service posts direct messages to the chat webhook. Duplicate messages to
// the same recipient are suppressed within a short window so queue
// redeliveries do not spam users.
type Service struct {
	webhookURL string
	botName    string
	iconURL    string
	client     *http.Client
	cache      *dedupCache
	logger     *slog.Logger
}

// New constructs a chat service. Sending is a no-op when no webhook URL is
// configured.
func New(cfg config.WorkerConfig, logger *slog.Logger) *Service {
	return &Service{
		webhookURL: cfg.ChatWebhookURL,
		botName:    cfg.ChatBotName,
		iconURL:    cfg.ChatIconURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		cache:      newDedupCache(cfg.ChatDedupTTL, cfg.ChatDedupMaxEntries),
		logger:     logger,
	}
}

// SendDM delivers text to channel unless the same message was sent recently.
func (s *Service) SendDM(ctx context.Context, channel, text string) error {
	if s.webhookURL == "" {
		s.logger.Debug("chat webhook not configured, dropping message", "channel", channel)
		return nil
	}
	if s.cache.Seen(messageKey(channel, text)) {
		s.logger.Debug("duplicate chat message suppressed", "channel", channel)
		return nil
	}

	payload := map[string]string{
		"channel":  channel,
		"text":     text,
		"username": s.botName,
		"icon_url": s.iconURL,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode chat payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.New("chat webhook rejected message: " + resp.Status)
	}
	s.logger.Info("chat message sent", "channel", channel)
	return nil
}

// Close releases the dedup cache's sweep loop.
func (s *Service) Close() {
	s.cache.Close()
}

func messageKey(channel, text string) string {
	sum := sha256.Sum256([]byte(channel + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
