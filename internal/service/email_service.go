package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"choreboard/internal/models"
)

// EmailService sends invite emails through Amazon SES. When no sender
// address is configured the service is disabled and sends are no-ops.
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
}

// NewEmailService creates an email service. Pass an empty fromEmail to run
// with email delivery disabled.
func NewEmailService(ctx context.Context, region, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	svc := &EmailService{
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
	}
	if fromEmail == "" {
		log.Println("Email delivery disabled: no sender address configured")
		return svc, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	svc.client = sesv2.NewFromConfig(cfg)
	return svc, nil
}

// Enabled reports whether email delivery is configured
func (s *EmailService) Enabled() bool {
	return s.client != nil
}

// SendInvite emails a family invite code to a recipient
func (s *EmailService) SendInvite(ctx context.Context, recipient string, family *models.Family, senderName string) error {
	if !s.Enabled() {
		return ErrUnavailable
	}

	subject := fmt.Sprintf("%s invited you to join %s", senderName, family.Name)
	textBody := fmt.Sprintf(
		"%s invited you to join the %s family.\n\n"+
			"Your invite code is %s.\n\n"+
			"Open %s and enter the code to join.\n",
		senderName, family.Name, family.InviteCode, s.appBaseURL)
	htmlBody := fmt.Sprintf(
		"<p>%s invited you to join the <strong>%s</strong> family.</p>"+
			"<p>Your invite code is <strong>%s</strong>.</p>"+
			"<p><a href=\"%s\">Open the app</a> and enter the code to join.</p>",
		senderName, family.Name, family.InviteCode, s.appBaseURL)

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody)},
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		log.Printf("Failed to send invite email: %v", err)
		return ErrUnavailable
	}
	return nil
}
