package data

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	_ "golang.org/x/image/webp"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

const (
	mailFromName = "BuyTheWay Bot"
	mailTimeout  = 30 * time.Second
)

// smtpMailer sends forward mails over SMTP
type smtpMailer struct {
	logger *slog.Logger
	debug  bool
}

// NewMailSender creates an SMTP mail sender
func NewMailSender(logger *slog.Logger, debug bool) repo.MailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &smtpMailer{logger: logger, debug: debug}
}

// Send builds the message and delivers it with a fresh connection.
// Images that no longer exist or cannot be read are skipped with a warning.
func (m *smtpMailer) Send(ctx context.Context, cfg domain.EmailSettings, msg *repo.Mail) error {
	if !cfg.Complete() {
		return fmt.Errorf("email configuration incomplete")
	}

	out, err := m.buildMessage(cfg, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(cfg.Host, m.clientOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	m.logger.Info("Mail sent", "to", cfg.To, "subject", msg.Subject, "images", len(msg.Images))
	return nil
}

func (m *smtpMailer) clientOptions(cfg domain.EmailSettings) []mail.Option {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(mailTimeout),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: !cfg.RejectUnauthorized,
		}),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	// after WithSSL, which would otherwise reset the port
	opts = append(opts, mail.WithPort(cfg.Port))
	if m.debug {
		opts = append(opts, mail.WithDebugLog())
	}
	return opts
}

func (m *smtpMailer) buildMessage(cfg domain.EmailSettings, msg *repo.Mail) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.FromFormat(mailFromName, cfg.User); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.To(splitRecipients(cfg.To)...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetMessageID()
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}

	for i, path := range msg.Images {
		data, err := readAttachment(path)
		if err != nil {
			m.logger.Warn("Skipping unreadable mail attachment", "path", path, "error", err)
			continue
		}
		if err := out.EmbedReader(filepath.Base(path), bytes.NewReader(data),
			mail.WithFileContentID(repo.InlineImageID(i)),
			mail.WithFileName(filepath.Base(path)),
			mail.WithFileContentType(mail.ContentType(imageContentType(path, data)))); err != nil {
			m.logger.Warn("Skipping mail attachment", "path", path, "error", err)
		}
	}
	return out, nil
}

// splitRecipients accepts comma or semicolon separated addresses
func splitRecipients(to string) []string {
	fields := strings.FieldsFunc(to, func(r rune) bool { return r == ',' || r == ';' })
	rcpts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			rcpts = append(rcpts, f)
		}
	}
	return rcpts
}

// readAttachment loads a regular file into memory
func readAttachment(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return io.ReadAll(f)
}

// imageContentType sniffs the image format, since QQ stores png and webp
// data under .jpg names. Falls back to the extension.
func imageContentType(path string, data []byte) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return "image/" + format
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
