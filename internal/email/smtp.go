package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"realty_crm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers mail through the agency's SMTP relay via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender returns an SMTPSender when SMTP is configured, otherwise a
// NoopSender.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFromAddress(), cfg.GetSMTPFromName())
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) message(toEmail, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg, err := s.message(toEmail, subject, htmlContent)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendMatchDigest(ctx context.Context, toEmail string, digest MatchDigest) error {
	subject, content, err := renderMatchDigest(digest)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func renderMatchDigest(digest MatchDigest) (string, string, error) {
	subject := fmt.Sprintf(subjectMatchDigestFmt, digest.ClientName)
	heading := "Novos matches de imóveis"
	if digest.MatchesFound == 0 {
		subject = fmt.Sprintf(subjectNoMatchesFmt, digest.ClientName)
		heading = "Nenhum novo match hoje"
	}

	content, err := renderEmailTemplate("match_digest.html", matchDigestEmailData{
		baseEmailData: baseEmailData{
			Title:      subject,
			Heading:    heading,
			Subheading: digest.ClientName,
		},
		MatchDigest: digest,
	})
	if err != nil {
		return "", "", err
	}
	return subject, content, nil
}

var _ Sender = (*SMTPSender)(nil)
