package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/infra/onebot"
)

// onebotSender is the subset of the OneBot client used for relaying
type onebotSender interface {
	SendPrivateMsg(ctx context.Context, userID int64, message []onebot.Segment) (int64, error)
	SendGroupMsg(ctx context.Context, groupID int64, message []onebot.Segment) (int64, error)
}

// onebotRuntime implements repo.ChatRuntime over OneBot actions
type onebotRuntime struct {
	client onebotSender
}

// NewChatRuntime creates the chat runtime port
func NewChatRuntime(client onebotSender) repo.ChatRuntime {
	return &onebotRuntime{client: client}
}

// SendToContact sends payload to a contact
func (r *onebotRuntime) SendToContact(ctx context.Context, id string, payload repo.Payload) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	_, err = r.client.SendPrivateMsg(ctx, uid, toSegments(payload))
	return err
}

// SendToGroup sends payload to a group
func (r *onebotRuntime) SendToGroup(ctx context.Context, id string, payload repo.Payload) error {
	gid, err := parseID(id)
	if err != nil {
		return err
	}
	_, err = r.client.SendGroupMsg(ctx, gid, toSegments(payload))
	return err
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid target id %q", id)
	}
	return n, nil
}

func toSegments(p repo.Payload) []onebot.Segment {
	segs := make([]onebot.Segment, 0, len(p.Images)+1)
	if p.Text != "" {
		segs = append(segs, onebot.Text(p.Text))
	}
	for _, path := range p.Images {
		segs = append(segs, onebot.Image(fileURI(path)))
	}
	return segs
}

// fileURI converts a local path to a file:// URI, also for Windows paths.
// URLs are passed through unchanged.
func fileURI(path string) string {
	if i := strings.Index(path, "://"); i > 0 && !strings.ContainsAny(path[:i], `/\:`) {
		return path
	}
	p := filepath.ToSlash(path)
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}
