package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"campusnest/market/internal/config"
)

// MockEmailTTL is how long captured emails stay readable.
const MockEmailTTL = 5 * time.Minute

// CapturedEmail is the JSON stored for each mock email.
type CapturedEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId"`
	SentAt     string `json:"sent_at"`
}

// MockEmailKey is the Redis key a captured email is stored under.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", to, templateID)
}

// RedisSender implements the Sender interface by storing emails in Redis
type RedisSender struct {
	client redis.Cmdable
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client redis.Cmdable, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores the email in Redis keyed by first recipient and template id.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := "unknown"
	body := string(rawMessage)
	if hdr, b, err := ParseMessage(rawMessage); err == nil {
		body = b
		if id := hdr.Get(TemplateHeader); id != "" {
			templateID = id
		}
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	jsonData, err := json.Marshal(CapturedEmail{
		To:         strings.Join(to, ", "),
		From:       s.cfg.SmtpFromAddress,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, templateID)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	slog.Info("mock email stored in Redis", "key", key, "ttl", MockEmailTTL, "subject", subject)
	return nil
}

// GetCaptured reads back a captured email. Returns redis.Nil when absent.
func GetCaptured(ctx context.Context, client redis.Cmdable, to, templateID string) (*CapturedEmail, error) {
	raw, err := client.Get(ctx, MockEmailKey(to, templateID)).Bytes()
	if err != nil {
		return nil, err
	}
	var ce CapturedEmail
	if err := json.Unmarshal(raw, &ce); err != nil {
		return nil, fmt.Errorf("failed to decode captured email: %w", err)
	}
	return &ce, nil
}
