package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/newsletter/internal/domain"
)

// Client sends email over the Postmark wire protocol:
// POST {base}/email with a PascalCase JSON body and the server token in the
// X-Postmark-Server-Token header.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	sender      domain.SubscriberEmail
	serverToken string
}

// NewClient builds a Postmark client. timeout bounds every delivery attempt.
func NewClient(baseURL string, sender domain.SubscriberEmail, serverToken string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing email base URL %q: %w", baseURL, err)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     u,
		sender:      sender,
		serverToken: serverToken,
	}, nil
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send delivers one email. Any non-2xx response, transport failure, or
// timeout is a *TransportError.
func (c *Client) Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	endpoint := c.baseURL.JoinPath("/email")

	body, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return &TransportError{Op: "encode email request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "build email request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "send email", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read: the transport's error body is for logs only.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Op:  "send email",
			Err: fmt.Errorf("email API returned status %d: %s", resp.StatusCode, detail),
		}
	}
	return nil
}
