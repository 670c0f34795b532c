package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// Client posts messages to Feishu chats through the open platform API
type Client struct {
	larkCli *lark.Client
	logger  *slog.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *slog.Logger, opts ...lark.ClientOptionFunc) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		larkCli: lark.NewClient(appID, appSecret, opts...),
		logger:  logger,
	}
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.send(ctx, chatID, larkim.MsgTypeText, string(contentJSON))
}

// SendImage sends a previously uploaded image to a chat
func (c *Client) SendImage(ctx context.Context, chatID, imageKey string) error {
	contentJSON, _ := json.Marshal(map[string]string{"image_key": imageKey})
	return c.send(ctx, chatID, larkim.MsgTypeImage, string(contentJSON))
}

func (c *Client) send(ctx context.Context, chatID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}

	c.logger.Debug("Feishu message sent", "chat_id", chatID, "msg_type", msgType)
	return nil
}

// UploadImage uploads a local image and returns its image key
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType("message").
			Image(file).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("upload image returned no key")
	}
	return *resp.Data.ImageKey, nil
}
