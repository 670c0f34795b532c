package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/biz/usecase"
	"github.com/buytheway/buytheway-bridge/internal/conf"
	"github.com/buytheway/buytheway-bridge/internal/data"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
	"github.com/buytheway/buytheway-bridge/internal/infra/feishu"
	"github.com/buytheway/buytheway-bridge/internal/infra/onebot"
)

// send-forward pushes a synthetic matched message through the configured
// sinks, so email and relay settings can be checked without waiting for a
// real supplier message.

func main() {
	_ = godotenv.Load()

	source := flag.String("source", "", "source group or contact id (used for the label)")
	text := flag.String("text", "BuyTheWay test forward", "message text")
	relay := flag.Bool("relay", false, "connect to OneBot so contact/group relays can deliver")
	var images []string
	flag.Func("image", "image path as reported by the chat client (repeatable)", func(v string) error {
		images = append(images, v)
		return nil
	})
	flag.Parse()

	if *source == "" {
		fmt.Println("Usage: send-forward -source <id> [-text <message>] [-image <path>]... [-relay]")
		os.Exit(1)
	}

	cfg := conf.LoadFromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	settingsPath := conf.FindSettings(cfg.SettingsPath)
	settings, err := data.NewSettingsStore(settingsPath, logger).Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	var runtime repo.ChatRuntime
	if *relay {
		client := onebot.NewClient(cfg.OneBot.URL, cfg.OneBot.AccessToken, logger)
		go client.Run(ctx)
		if err := waitConnected(ctx, client, 10*time.Second); err != nil {
			log.Fatalf("OneBot not connected: %v", err)
		}
		runtime = data.NewChatRuntime(client)
	}

	var poster repo.ChatPoster
	if cfg.Feishu.Configured() {
		poster = data.NewFeishuPoster(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger), logger)
	}

	notifier := data.NewLogNotifier(logger, 0)
	resolver := usecase.NewImageResolver(data.NewFileProber(cfg.GuardWindow), backoff.DefaultImagePolicy(), logger).
		WithMaxWait(settings.Resolver.MaxWait)
	dispatcher := usecase.NewForwardDispatcher(data.NewMailSender(logger, cfg.Debug), runtime, poster, notifier, logger)

	segments := []domain.Segment{domain.TextSegment(*text)}
	for _, img := range images {
		segments = append(segments, domain.ImageSegment(img))
	}
	msg := domain.NewCanonicalMessage(
		fmt.Sprintf("test-%d", time.Now().UnixNano()),
		domain.SourceGroup,
		*source,
		domain.LookupLabel(settings.WatchList, *source),
		segments,
		time.Now(),
	)

	media := resolver.ResolveAll(ctx, msg.MediaRefs)
	res := dispatcher.Dispatch(ctx, &msg, media, settings.Forward)

	for _, o := range res.Outcomes {
		status := "ok"
		if !o.OK {
			status = "FAILED: " + o.Error
		}
		fmt.Printf("%-8s %-14s %s\n", o.Sink, o.Target, status)
	}
	if !res.Attempted {
		fmt.Println("No sink is enabled; the message was raised as a local notification")
	} else if !res.Delivered() {
		fmt.Println("Every sink failed; the message was raised as a local notification")
	}
}

func waitConnected(ctx context.Context, client *onebot.Client, timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for !client.Connected() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return onebot.ErrNotConnected
		case <-tick.C:
		}
	}
	return nil
}
