package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/newsletter/internal/domain"
)

// SESSender delivers email through AWS SES v2. It satisfies the same no-retry
// contract as the Postmark client; the SDK's own retryer is disabled.
type SESSender struct {
	client  *sesv2.Client
	sender  domain.SubscriberEmail
	timeout time.Duration
}

// SESConfig holds the credentials and region for the SES backend.
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// NewSESSender creates an SES-backed sender. timeout bounds each delivery.
func NewSESSender(ctx context.Context, cfg SESConfig, sender domain.SubscriberEmail, timeout time.Duration) (*SESSender, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESSender{
		client:  sesv2.NewFromConfig(awsCfg),
		sender:  sender,
		timeout: timeout,
	}, nil
}

// Send delivers one email through SES.
func (s *SESSender) Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender.String()),
		Destination: &types.Destination{
			ToAddresses: []string{recipient.String()},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return &TransportError{Op: "send email via SES", Err: err}
	}
	return nil
}
