package notification

import (
	"context"
	"fmt"

	"github.com/nhattran/livebid-BE/internal/util"
	"github.com/wneessen/go-mail"
)

// MailNotifier delivers outcomes over SMTP. Deployments using it issue
// bidder identities that are email addresses, so the recipient ID doubles as
// the destination.
type MailNotifier struct {
	client      *mail.Client
	senderName  string
	senderEmail string
}

func NewMailNotifier(host string, port int, username, password, senderName, senderEmail string) (*MailNotifier, error) {
	client, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username), mail.WithPassword(password))
	if err != nil {
		return nil, err
	}
	if err = client.DialWithContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	return &MailNotifier{
		client:      client,
		senderName:  senderName,
		senderEmail: senderEmail,
	}, nil
}

func (n *MailNotifier) NotifyOutcome(ctx context.Context, outcome Outcome) error {
	msg := mail.NewMsg()

	if err := msg.FromFormat(n.senderName, n.senderEmail); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}
	if err := msg.To(outcome.RecipientID); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}

	title := util.TruncateContent(outcome.AuctionTitle, 60)

	var subject, body string
	if outcome.Outcome == "WIN" {
		subject = fmt.Sprintf("You won \"%s\"!", title)
		body = fmt.Sprintf("Congratulations! You won auction %s with a final price of %s.",
			outcome.AuctionID, util.FormatMoney(outcome.Amount))
	} else {
		subject = fmt.Sprintf("Auction \"%s\" ended", title)
		body = fmt.Sprintf("Auction %s has ended at a final price of %s. Your bid did not win.",
			outcome.AuctionID, util.FormatMoney(outcome.Amount))
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
