package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// ErrSinkNotReady is recorded when a sink is enabled but its transport is not wired
var ErrSinkNotReady = errors.New("sink transport not available")

// DispatchResult summarizes one dispatch
type DispatchResult struct {
	// Attempted is false when only the local fallback ran
	Attempted bool
	Outcomes  []domain.SinkOutcome
}

// Delivered reports whether at least one sink other than the local
// notification accepted the message
func (r DispatchResult) Delivered() bool {
	for _, o := range r.Outcomes {
		if o.OK && o.Sink != domain.SinkLocal {
			return true
		}
	}
	return false
}

// ForwardDispatcher fans a matched message out to the enabled sinks.
// A failing sink never prevents the others from being attempted.
type ForwardDispatcher struct {
	mailer   repo.MailSender
	runtime  repo.ChatRuntime
	feishu   repo.ChatPoster
	notifier repo.Notifier
	logger   *slog.Logger
}

// NewForwardDispatcher creates a new dispatcher. Any transport may be nil,
// in which case its sink is reported as not ready.
func NewForwardDispatcher(
	mailer repo.MailSender,
	runtime repo.ChatRuntime,
	feishu repo.ChatPoster,
	notifier repo.Notifier,
	logger *slog.Logger,
) *ForwardDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForwardDispatcher{
		mailer:   mailer,
		runtime:  runtime,
		feishu:   feishu,
		notifier: notifier,
		logger:   logger,
	}
}

// Dispatch renders msg and delivers it through every enabled sink.
// media holds resolved file paths, which may turn out to be missing.
// When no sink delivered, the message is raised as a local notification.
func (d *ForwardDispatcher) Dispatch(ctx context.Context, msg *domain.CanonicalMessage, media []string, cfg domain.ForwardConfig) DispatchResult {
	rendered := Render(cfg.Template, msg.SourceLabel, msg.Text, msg.Timestamp, len(media))

	var res DispatchResult

	if cfg.Email.Enabled {
		d.dispatchEmail(ctx, &res, msg, rendered, media, cfg.Email)
	}
	if cfg.Contacts.Enabled {
		d.dispatchRelay(ctx, &res, domain.SinkContact, cfg.Contacts.TargetIDs(), rendered, media, d.sendToContact)
	}
	if cfg.Groups.Enabled {
		d.dispatchRelay(ctx, &res, domain.SinkGroup, cfg.Groups.TargetIDs(), rendered, media, d.sendToGroup)
	}
	if cfg.Feishu.Enabled {
		d.dispatchFeishu(ctx, &res, rendered, media, cfg.Feishu)
	}

	if !res.Delivered() {
		title := EmailSubject(msg.SourceLabel)
		res.Outcomes = append(res.Outcomes, d.attempt(domain.SinkLocal, "", func() error {
			if d.notifier == nil {
				return ErrSinkNotReady
			}
			d.notifier.Notify(ctx, title, rendered.Body)
			return nil
		}))
	}
	return res
}

func (d *ForwardDispatcher) dispatchEmail(ctx context.Context, res *DispatchResult, msg *domain.CanonicalMessage, r Rendered, media []string, cfg domain.EmailSettings) {
	if !cfg.Complete() {
		d.logger.Warn("Email sink enabled but configuration is incomplete")
		return
	}
	if d.mailer == nil {
		res.Outcomes = append(res.Outcomes, domain.SinkOutcome{Sink: domain.SinkEmail, Target: cfg.To, Error: ErrSinkNotReady.Error()})
		return
	}

	res.Attempted = true
	mail := &repo.Mail{
		Subject:  EmailSubject(msg.SourceLabel),
		HTMLBody: r.HTML,
		TextBody: r.Body,
		Images:   media,
	}
	out := d.attempt(domain.SinkEmail, cfg.To, func() error {
		return d.mailer.Send(ctx, cfg, mail)
	})
	res.Outcomes = append(res.Outcomes, out)

	if !out.OK && d.notifier != nil {
		d.notifier.Notify(ctx, "BuyTheWay 邮件错误", "邮件发送失败: "+out.Error)
	}
}

type relaySend func(ctx context.Context, id string, p repo.Payload) error

func (d *ForwardDispatcher) sendToContact(ctx context.Context, id string, p repo.Payload) error {
	return d.runtime.SendToContact(ctx, id, p)
}

func (d *ForwardDispatcher) sendToGroup(ctx context.Context, id string, p repo.Payload) error {
	return d.runtime.SendToGroup(ctx, id, p)
}

func (d *ForwardDispatcher) dispatchRelay(ctx context.Context, res *DispatchResult, sink domain.Sink, ids []string, r Rendered, media []string, send relaySend) {
	if len(ids) == 0 {
		d.logger.Warn("Relay sink enabled but has no valid target ids", "sink", sink)
		return
	}
	if d.runtime == nil {
		for _, id := range ids {
			res.Outcomes = append(res.Outcomes, domain.SinkOutcome{Sink: sink, Target: id, Error: ErrSinkNotReady.Error()})
		}
		return
	}

	res.Attempted = true
	for _, id := range ids {
		res.Outcomes = append(res.Outcomes, d.attempt(sink, id, func() error {
			return d.relay(ctx, sink, id, r, media, send)
		}))
	}
}

// relay sends text and images as one message. If that fails, it falls
// back to the plain body, which mentions the image count.
func (d *ForwardDispatcher) relay(ctx context.Context, sink domain.Sink, id string, r Rendered, media []string, send relaySend) error {
	if len(media) > 0 {
		chain := repo.Payload{Images: media}
		if strings.TrimSpace(r.ChainText) != "" {
			chain.Text = r.ChainText
		}
		err := send(ctx, id, chain)
		if err == nil {
			return nil
		}
		d.logger.Warn("Relay with images failed, retrying as text", "sink", sink, "target", id, "error", err)
		if strings.TrimSpace(r.Body) == "" {
			return err
		}
	}

	if strings.TrimSpace(r.Body) == "" {
		return nil
	}
	if err := send(ctx, id, repo.Payload{Text: r.Body}); err != nil {
		return fmt.Errorf("send to %s %s: %w", sink, id, err)
	}
	return nil
}

func (d *ForwardDispatcher) dispatchFeishu(ctx context.Context, res *DispatchResult, r Rendered, media []string, cfg domain.FeishuSettings) {
	if len(cfg.ChatIDs) == 0 {
		d.logger.Warn("Feishu sink enabled but has no chat ids")
		return
	}
	if d.feishu == nil {
		for _, chatID := range cfg.ChatIDs {
			res.Outcomes = append(res.Outcomes, domain.SinkOutcome{Sink: domain.SinkFeishu, Target: chatID, Error: ErrSinkNotReady.Error()})
		}
		return
	}

	res.Attempted = true
	for _, chatID := range cfg.ChatIDs {
		res.Outcomes = append(res.Outcomes, d.attempt(domain.SinkFeishu, chatID, func() error {
			if err := d.feishu.PostText(ctx, chatID, r.Body); err != nil {
				return err
			}
			if !cfg.SendImages {
				return nil
			}
			for _, path := range media {
				if err := d.feishu.PostImage(ctx, chatID, path); err != nil {
					d.logger.Warn("Feishu image upload failed", "chat_id", chatID, "path", path, "error", err)
				}
			}
			return nil
		}))
	}
}

// attempt runs one sink delivery, converting errors and panics into an outcome
func (d *ForwardDispatcher) attempt(sink domain.Sink, target string, fn func() error) (out domain.SinkOutcome) {
	out = domain.SinkOutcome{Sink: sink, Target: target}
	defer func() {
		if rec := recover(); rec != nil {
			out.OK = false
			out.Error = fmt.Sprintf("panic: %v", rec)
			d.logger.Error("Sink panicked", "sink", sink, "target", target, "panic", rec)
		}
	}()

	if err := fn(); err != nil {
		out.Error = err.Error()
		d.logger.Error("Forward failed", "sink", sink, "target", target, "error", err)
		return out
	}
	out.OK = true
	d.logger.Info("Forwarded message", "sink", sink, "target", target)
	return out
}
