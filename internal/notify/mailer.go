package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/config"
)

// Mailer is the external email collaborator. Implementations must be safe
// for concurrent use; the dispatcher calls them from detached goroutines.
type Mailer interface {
	SendNewMessageEmail(ctx context.Context, to, recipientName, senderName string) error
}

// HTTPMailer posts to the platform's mail microservice.
type HTTPMailer struct {
	client *resty.Client
}

func NewHTTPMailer(cfg *config.Config) *HTTPMailer {
	client := resty.New().
		SetBaseURL(cfg.MailServiceURL).
		SetHeader("X-API-Key", cfg.MailServiceAPIKey).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &HTTPMailer{client: client}
}

func (m *HTTPMailer) SendNewMessageEmail(ctx context.Context, to, recipientName, senderName string) error {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"template":      "new_secure_message",
			"to":            to,
			"recipientName": recipientName,
			"senderName":    senderName,
		}).
		Post("/v1/send")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("mail service returned %s", resp.Status())
	}
	return nil
}
