package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// EmailSender delivers HTML reports over SMTP with STARTTLS auth.
type EmailSender struct {
	cfg config.SMTPConfig

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender creates a sender for the given SMTP settings.
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	if cfg.Sender == "" {
		cfg.Sender = "noreply@cloudcleaner.local"
	}
	return &EmailSender{cfg: cfg, send: smtp.SendMail}
}

// Channel implements Sender.
func (s *EmailSender) Channel() types.Channel {
	return types.ChannelEmail
}

// Send delivers the report to every configured recipient.
func (s *EmailSender) Send(_ context.Context, report *types.ScanReport) error {
	if len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	subject := fmt.Sprintf("Cloud Cleaner Alert: %d Unused Resources Found", report.TotalResources)
	msg := buildMessage(s.cfg.Sender, s.cfg.Recipients, subject, buildHTMLBody(report))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := s.send(addr, auth, s.cfg.Sender, s.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func buildHTMLBody(report *types.ScanReport) string {
	var cards strings.Builder
	counts := report.CountByKind()
	for _, kind := range types.AllKinds {
		var breakdown string
		if lines := regionBreakdown(report, kind); lines != "" {
			items := strings.Split(strings.TrimSpace(lines), "\n")
			breakdown = "<ul>"
			for _, item := range items {
				breakdown += "<li>" + strings.TrimPrefix(item, "• ") + "</li>"
			}
			breakdown += "</ul>"
		}
		fmt.Fprintf(&cards, `<div class="card"><h3>%s</h3><div class="count">%d</div>%s</div>`,
			kindLabel(kind), counts[kind], breakdown)
	}

	return fmt.Sprintf(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; }
.container { max-width: 600px; margin: 0 auto; }
.header { background-color: #1e293b; color: white; padding: 20px; text-align: center; }
.card { background-color: white; padding: 15px; border-radius: 8px; border-left: 4px solid #3b82f6; margin: 10px 0; }
.card .count { font-size: 24px; font-weight: bold; color: #3b82f6; }
.savings { background-color: #dcfce7; padding: 15px; border-radius: 8px; margin: 20px 0; text-align: center; }
.footer { text-align: center; padding: 20px; color: #64748b; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>Cloud Cleaner Report</h1><p>%s</p></div>
%s
<div class="savings"><h2>Potential Monthly Savings</h2><h1>$%.2f</h1></div>
<div class="footer"><p>Generated at %s</p><p>This is an automated message.</p></div>
</div>
</body>
</html>`,
		Summary(report),
		cards.String(),
		report.TotalEstimatedSavings,
		report.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
}
