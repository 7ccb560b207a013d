package email

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusnest/market/internal/config"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, to []string, subject string, raw []byte) error {
	s.calls++
	return s.err
}

func TestBuildAndParseMessage(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	raw := BuildMessage("noreply@x", []string{"a@x", "b@x"}, "Hello", "line one\nline two", "visit_confirmed", now)

	hdr, body, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Hello", hdr.Get("Subject"))
	assert.Equal(t, "a@x, b@x", hdr.Get("To"))
	assert.Equal(t, "visit_confirmed", hdr.Get(TemplateHeader))
	assert.Equal(t, "line one\nline two", body)
}

func TestCompositeSender(t *testing.T) {
	ok, bad := &stubSender{}, &stubSender{err: errors.New("down")}
	cs := NewCompositeEmailSender(ok)
	cs.AddSender(nil)
	cs.AddSender(bad)

	err := cs.Send(context.Background(), []string{"a@x"}, "s", nil)
	assert.ErrorContains(t, err, "down")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), nil, "s", nil))
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{})
	_, isLogging := s.(*LoggingSender)
	assert.True(t, isLogging)
	assert.NoError(t, s.Send(context.Background(), []string{"a@x"}, "s", []byte("hi")))
}

func TestRedisSender(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis sender test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	cfg := &config.Config{SmtpFromAddress: "noreply@x"}
	raw := BuildMessage(cfg.SmtpFromAddress, []string{"landlord@x"}, "New join request", "body", "new_join_request", time.Now())

	require.NoError(t, NewRedisSender(rdb, cfg).Send(ctx, []string{"landlord@x"}, "New join request", raw))

	ce, err := GetCaptured(ctx, rdb, "landlord@x", "new_join_request")
	require.NoError(t, err)
	assert.Equal(t, "New join request", ce.Subject)
	assert.Equal(t, "body", ce.Body)
	assert.Equal(t, "noreply@x", ce.From)
}
