package repo

import (
	"context"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// Payload is a relay message: text followed by images
type Payload struct {
	Text   string
	Images []string // local file paths
}

// Empty reports whether there is nothing to send
func (p Payload) Empty() bool {
	return p.Text == "" && len(p.Images) == 0
}

// ChatRuntime is the host chat client's own send capability
type ChatRuntime interface {
	// SendToContact delivers payload to a direct contact
	SendToContact(ctx context.Context, id string, payload Payload) error

	// SendToGroup delivers payload to a group
	SendToGroup(ctx context.Context, id string, payload Payload) error
}

// EventSource yields raw inbound events until ctx is done
type EventSource interface {
	Events(ctx context.Context) (<-chan domain.RawEvent, error)
}
