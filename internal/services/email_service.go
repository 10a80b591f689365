package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

// EmailService defines the interface for security notices sent to account
// holders. Callers treat every send as best-effort.
type EmailService interface {
	SendLockoutNotice(ctx context.Context, email, fullName string, lockedUntil time.Time) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	sendTimeout time.Duration
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, sendTimeout time.Duration, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		sendTimeout: sendTimeout,
		logger:      logger,
	}, nil
}

// SendLockoutNotice tells the account holder their account was temporarily
// locked after repeated failed sign-in attempts. The send is bounded by the
// configured timeout regardless of the caller's context.
func (s *AWSSESEmailService) SendLockoutNotice(ctx context.Context, email, fullName string, lockedUntil time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	until := lockedUntil.UTC().Format("15:04 MST, Jan 2 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Account Temporarily Locked</h1>
        </div>
        <div class="content">
            <p>Hello %s,</p>
            <p>Your account has been temporarily locked after several failed sign-in attempts.</p>
            <div class="warning">
                <strong>The lock lifts automatically at %s.</strong> No action is needed on your part.
            </div>
            <p><strong>Wasn't you?</strong><br>
            If you did not attempt to sign in, someone may be trying to guess your password. We recommend changing it once the lock lifts, and contacting your administrator.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, fullName, until)

	textBody := fmt.Sprintf(`Account Temporarily Locked

Hello %s,

Your account has been temporarily locked after several failed sign-in attempts.

The lock lifts automatically at %s. No action is needed on your part.

Wasn't you?
If you did not attempt to sign in, someone may be trying to guess your password. We recommend changing it once the lock lifts, and contacting your administrator.

This is an automated message. Please do not reply to this email.
`, fullName, until)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send lockout notice via SES",
			slog.String("email", pkglogger.MaskEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("lockout notice sent",
		slog.String("email", pkglogger.MaskEmail(email)),
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopEmailService is used when email delivery is disabled by configuration.
type NoopEmailService struct{}

func (NoopEmailService) SendLockoutNotice(ctx context.Context, email, fullName string, lockedUntil time.Time) error {
	return nil
}
