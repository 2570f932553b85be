package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// InvitationMailer notifies a provisioned account that an invitation is waiting.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, account *models.Account) error
}

// SESInvitationMailer sends invitation emails using AWS SES
type SESInvitationMailer struct {
	sesClient   *ses.Client
	fromAddress string
	appURL      string
	logger      *slog.Logger
}

// NewSESInvitationMailer creates a new AWS SES invitation mailer
func NewSESInvitationMailer(ctx context.Context, region, fromAddress, appURL string, logger *slog.Logger) (*SESInvitationMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESInvitationMailer{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		appURL:      appURL,
		logger:      logger,
	}, nil
}

// InvitationLink is the page where the invited user signs in to claim the account.
func InvitationLink(appURL, email string) string {
	return fmt.Sprintf("%s/complete-registration?email=%s", strings.TrimRight(appURL, "/"), url.QueryEscape(email))
}

func invitationRoleLabel(account *models.Account) string {
	if account.Role == models.RoleFactory {
		return "factory partner"
	}
	if p, ok := account.Admin(); ok {
		return strings.ReplaceAll(string(p.AdminLevel), "_", " ")
	}
	return string(account.Role)
}

// SendInvitation sends the invitation email for a pending account
func (s *SESInvitationMailer) SendInvitation(ctx context.Context, account *models.Account) error {
	link := InvitationLink(s.appURL, account.Email)
	name := account.DisplayName
	if name == "" {
		name = "there"
	}
	role := invitationRoleLabel(account)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>You're invited to Labsy</h1>
        </div>
        <p>Hi %s,</p>
        <p>An account has been created for you as a <strong>%s</strong>. Sign in with this email address to activate it:</p>
        <p><a href="%s" class="button">Activate account</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(role), link, link)

	textBody := fmt.Sprintf(`You're invited to Labsy

Hi %s,

An account has been created for you as a %s. Sign in with this email address to activate it:

%s

This is an automated message. Please do not reply to this email.
`, name, role, link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{account.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your Labsy account is ready"),
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
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	s.logger.Info("invitation email sent",
		slog.String("email", logger.SanitizedEmail(account.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogInvitationMailer only logs invitations. Used when email delivery is disabled.
type LogInvitationMailer struct {
	appURL string
	logger *slog.Logger
}

func NewLogInvitationMailer(appURL string, logger *slog.Logger) *LogInvitationMailer {
	return &LogInvitationMailer{appURL: appURL, logger: logger}
}

func (m *LogInvitationMailer) SendInvitation(_ context.Context, account *models.Account) error {
	m.logger.Info("invitation email skipped, delivery disabled",
		slog.String("account_id", account.ID),
		slog.String("email", logger.SanitizedEmail(account.Email)),
		slog.String("app_url", m.appURL),
	)
	return nil
}
