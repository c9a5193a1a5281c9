package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

var ErrSMSNotConfigured = errors.New("sms gateway not configured")

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// HTTPSMSSender posts form-encoded messages to an HTTP SMS gateway.
type HTTPSMSSender struct {
	apiURL string
	apiID  string
	sender string
	client *http.Client
}

// NewSMSSender returns the HTTP gateway when configured and a log-only
// sender otherwise.
func NewSMSSender(cfg *config.Config) SMSSender {
	if cfg.SMSAPIURL == "" || cfg.SMSAPIID == "" {
		return LogSMSSender{}
	}
	return &HTTPSMSSender{
		apiURL: strings.TrimRight(cfg.SMSAPIURL, "/"),
		apiID:  strings.TrimSpace(cfg.SMSAPIID),
		sender: strings.TrimSpace(cfg.SMSSender),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSMSSender) Send(ctx context.Context, phone, message string) error {
	if s == nil || s.apiID == "" {
		return ErrSMSNotConfigured
	}
	form := url.Values{}
	form.Set("api_id", s.apiID)
	form.Set("to", phone)
	form.Set("msg", message)
	if s.sender != "" {
		form.Set("from", s.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// LogSMSSender writes messages to the log instead of sending them.
type LogSMSSender struct{}

func (LogSMSSender) Send(_ context.Context, phone, message string) error {
	logger.Info().Str("to", phone).Str("sms", message).Msg("SMS gateway not configured, message logged")
	return nil
}
