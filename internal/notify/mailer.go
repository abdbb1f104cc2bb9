package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sender delivers fully built messages.
type Sender interface {
	Send(ctx context.Context, msgs ...*mail.Msg) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

type SMTPSender struct {
	client *mail.Client
}

// NewSMTPSender builds a go-mail client. Without credentials it talks plain
// SMTP with opportunistic TLS, which is what local mail catchers expect.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTimeout(opts.Timeout),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msgs ...*mail.Msg) error {
	return s.client.DialAndSendWithContext(ctx, msgs...)
}

// Mailer renders and sends the admin notifications.
type Mailer struct {
	sender Sender
	from   string
	admin  string
	logger *slog.Logger
}

func NewMailer(sender Sender, from, admin string, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, admin: admin, logger: logger}
}

func LowStockSubject(name string) string {
	return "Low Stock Alert: " + name
}

func DailyReportSubject(day string) string {
	return "Daily Sales Report - " + day
}

func (m *Mailer) SendLowStock(ctx context.Context, mv inventory.Movement) error {
	body, err := render("low_stock.html", mv)
	if err != nil {
		return err
	}
	if err := m.send(ctx, LowStockSubject(mv.Name), body); err != nil {
		return fmt.Errorf("low stock mail for %s: %w", mv.ProductID, err)
	}
	m.logger.Info("low stock mail sent", "productId", mv.ProductID, "remaining", mv.Remaining, "to", m.admin)
	return nil
}

func (m *Mailer) SendDailyReport(ctx context.Context, r report.Report) error {
	body, err := render("daily_report.html", r)
	if err != nil {
		return err
	}
	if err := m.send(ctx, DailyReportSubject(r.Day()), body); err != nil {
		return fmt.Errorf("daily report mail for %s: %w", r.Day(), err)
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, subject, html string) error {
	msg, err := m.build(subject, html)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

func (m *Mailer) build(subject, html string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.admin); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
