package data

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

// feishuAPI is the subset of the Feishu client used for relaying
type feishuAPI interface {
	SendText(ctx context.Context, chatID, text string) error
	SendImage(ctx context.Context, chatID, imageKey string) error
	UploadImage(ctx context.Context, path string) (string, error)
}

// feishuPoster implements repo.ChatPoster on top of the Feishu client
type feishuPoster struct {
	client feishuAPI
	logger *slog.Logger
}

// NewFeishuPoster creates a Feishu relay. A nil client disables the sink.
func NewFeishuPoster(client feishuAPI, logger *slog.Logger) repo.ChatPoster {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &feishuPoster{client: client, logger: logger}
}

// PostText sends text to chatID, retrying transient failures
func (p *feishuPoster) PostText(ctx context.Context, chatID, text string) error {
	return backoff.Do(ctx, p.logger, "feishu send text", func() error {
		return p.client.SendText(ctx, chatID, text)
	})
}

// PostImage uploads the file at path and sends it to chatID
func (p *feishuPoster) PostImage(ctx context.Context, chatID, path string) error {
	var key string
	err := backoff.Do(ctx, p.logger, "feishu upload image", func() error {
		k, err := p.client.UploadImage(ctx, path)
		if errors.Is(err, fs.ErrNotExist) {
			return backoff.Unrecoverable(err)
		}
		if err != nil {
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		return err
	}
	return backoff.Do(ctx, p.logger, "feishu send image", func() error {
		return p.client.SendImage(ctx, chatID, key)
	})
}
