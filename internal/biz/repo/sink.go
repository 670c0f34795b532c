package repo

import (
	"context"
	"fmt"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// Mail is a rendered email
type Mail struct {
	Subject  string
	HTMLBody string
	TextBody string
	Images   []string // embedded as cid:image_<index>
}

// InlineImageID returns the content id of the i-th embedded image
func InlineImageID(i int) string {
	return fmt.Sprintf("image_%d", i)
}

// MailSender sends email through an external transport.
// Image files that are missing at send time are skipped, not fatal.
type MailSender interface {
	Send(ctx context.Context, cfg domain.EmailSettings, mail *Mail) error
}

// Notifier raises a local, in-process notification
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// ChatPoster relays text and images to third-party chat channels
type ChatPoster interface {
	PostText(ctx context.Context, chatID, text string) error
	PostImage(ctx context.Context, chatID, path string) error
}
