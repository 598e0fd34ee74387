package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"math"
	"mime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/text/currency"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/pkg/config"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Booking confirmed</h2>
  <p>Hello {{.UserName}},</p>
  <p>Your booking <strong>{{.BookingNumber}}</strong> is confirmed.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Booking type</td><td>{{.Kind}}{{if .Bundle}} (flight + hotel + tour){{end}}</td></tr>
    <tr><td>Status</td><td>{{.Status}}</td></tr>
    <tr><td>Booked on</td><td>{{.CreatedAt}}</td></tr>
    {{- if .ConfirmedAt}}
    <tr><td>Confirmed on</td><td>{{.ConfirmedAt}}</td></tr>
    {{- end}}
    <tr><td>Total</td><td>{{.Total}}</td></tr>
  </table>
  <p>Thank you for travelling with us.</p>
</body>
</html>
`))

type confirmationView struct {
	UserName      string
	BookingNumber string
	Kind          string
	Bundle        bool
	Status        string
	CreatedAt     string
	ConfirmedAt   string
	Total         string
}

// GmailNotifier sends confirmation emails through the Gmail API using an
// offline refresh token.
type GmailNotifier struct {
	service *gmail.Service
	sender  string
	loc     *time.Location
	logger  *zap.Logger
}

// NewGmailNotifier creates a Gmail API client authorized by cfg's refresh token.
func NewGmailNotifier(ctx context.Context, cfg config.GmailConfig, loc *time.Location, logger *zap.Logger) (*GmailNotifier, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("gmail notifier requires client ID, client secret and refresh token")
	}
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now(), // force a refresh on first use
	})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &GmailNotifier{service: service, sender: cfg.Sender, loc: loc, logger: logger}, nil
}

var _ application.NotificationGateway = (*GmailNotifier)(nil)

func (n *GmailNotifier) SendBookingConfirmation(ctx context.Context, email string, snapshot application.BookingSnapshot) error {
	raw, err := buildConfirmationMessage(n.sender, email, snapshot, n.loc)
	if err != nil {
		return err
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := n.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	n.logger.Info("confirmation email sent",
		zap.String("booking_id", snapshot.BookingID.String()),
		zap.String("message_id", sent.Id),
	)
	return nil
}

// buildConfirmationMessage renders an RFC 5322 message with an HTML body.
func buildConfirmationMessage(from, to string, snapshot application.BookingSnapshot, loc *time.Location) ([]byte, error) {
	view := confirmationView{
		UserName:      snapshot.UserName,
		BookingNumber: snapshot.BookingNumber,
		Kind:          snapshot.Kind,
		Bundle:        snapshot.Bundle,
		Status:        snapshot.Status,
		CreatedAt:     snapshot.CreatedAt.In(loc).Format("02-01-2006 15:04"),
		Total:         formatAmount(snapshot.TotalAmount, snapshot.Currency),
	}
	if snapshot.ConfirmedAt != nil {
		view.ConfirmedAt = snapshot.ConfirmedAt.In(loc).Format("02-01-2006 15:04")
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, view); err != nil {
		return nil, fmt.Errorf("failed to render confirmation email: %w", err)
	}

	var msg bytes.Buffer
	if from != "" {
		fmt.Fprintf(&msg, "From: %s\r\n", from)
	}
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Booking confirmation "+snapshot.BookingNumber))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// formatAmount renders an amount held in minor units with its currency code,
// using the ISO 4217 number of decimals (none for VND or JPY).
func formatAmount(minor int64, code string) string {
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	if scale == 0 {
		return fmt.Sprintf("%s%d %s", sign, minor, code)
	}
	div := int64(math.Pow10(scale))
	return fmt.Sprintf("%s%d.%0*d %s", sign, minor/div, scale, minor%div, code)
}
