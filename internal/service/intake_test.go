package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/biz/usecase"
	"github.com/buytheway/buytheway-bridge/internal/data"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockEvents struct {
	ch chan domain.RawEvent
}

func (m *mockEvents) Events(ctx context.Context) (<-chan domain.RawEvent, error) {
	return m.ch, nil
}

type mockSettings struct {
	settings *domain.Settings
	panic    bool
}

func (m *mockSettings) Load(ctx context.Context) (*domain.Settings, error) {
	if m.panic {
		panic("settings store corrupted")
	}
	return m.settings, nil
}

type mockMailer struct {
	mu    sync.Mutex
	mails []*repo.Mail
}

func (m *mockMailer) Send(ctx context.Context, cfg domain.EmailSettings, mail *repo.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mail)
	return nil
}

func (m *mockMailer) sent() []*repo.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*repo.Mail(nil), m.mails...)
}

type mockNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *mockNotifier) Notify(ctx context.Context, title, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
}

type testPipeline struct {
	intake   *IntakeService
	mailer   *mockMailer
	notifier *mockNotifier
	history  *mockHistory
	events   *mockEvents
	settings *mockSettings
}

func newTestPipeline(settings *domain.Settings) *testPipeline {
	p := &testPipeline{
		mailer:   &mockMailer{},
		notifier: &mockNotifier{},
		history:  &mockHistory{},
		events:   &mockEvents{ch: make(chan domain.RawEvent, 8)},
		settings: &mockSettings{settings: settings},
	}
	resolver := usecase.NewImageResolver(data.NewFileProber(0), backoff.DefaultImagePolicy(), testLogger())
	dispatcher := usecase.NewForwardDispatcher(p.mailer, nil, nil, p.notifier, testLogger())
	forward := usecase.NewForwardUsecase(resolver, dispatcher, nil, p.history, testLogger())
	p.intake = NewIntakeService(p.events, p.settings, forward, p.notifier, testLogger())
	return p
}

func supplierSettings() *domain.Settings {
	s := domain.DefaultSettings()
	s.WatchList = []string{"123456 (supplier A)"}
	s.Keywords = []string{"restock"}
	s.Forward.Email = domain.EmailSettings{
		Enabled: true, Host: "smtp.example.com", Port: 465, Secure: true,
		User: "bot@example.com", Pass: "secret", To: "me@example.com",
	}
	return s
}

func groupMessage(msgID, groupID int64, segments ...map[string]any) domain.RawEvent {
	message := make([]any, len(segments))
	for i, s := range segments {
		message[i] = s
	}
	return domain.RawEvent{
		"post_type":    "message",
		"message_type": "group",
		"self_id":      float64(42),
		"message_id":   float64(msgID),
		"group_id":     float64(groupID),
		"time":         float64(time.Now().Unix()),
		"message":      message,
	}
}

func textSeg(s string) map[string]any {
	return map[string]any{"type": "text", "data": map[string]any{"text": s}}
}

func imageSeg(path string) map[string]any {
	return map[string]any{"type": "image", "data": map[string]any{"file": filepath.Base(path), "path": path}}
}

func TestIntake_SupplierRestockIsEmailed(t *testing.T) {
	p := newTestPipeline(supplierSettings())

	out := p.intake.Handle(context.Background(), groupMessage(1, 123456, textSeg("Restock tomorrow!")))
	if out == nil || !out.Matched {
		t.Fatalf("Expected a match, got %+v", out)
	}

	mails := p.mailer.sent()
	if len(mails) != 1 {
		t.Fatalf("Expected one mail, got %d", len(mails))
	}
	if mails[0].Subject != "BuyTheWay 消息匹配: 123456 (supplier A)" {
		t.Errorf("Unexpected subject '%s'", mails[0].Subject)
	}
	if !strings.Contains(mails[0].TextBody, "Restock tomorrow!") {
		t.Errorf("Expected body to contain the text, got '%s'", mails[0].TextBody)
	}
	if stats := p.intake.Stats(); stats.Matched != 1 || stats.Forwarded != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestIntake_NoKeywordNoForward(t *testing.T) {
	p := newTestPipeline(supplierSettings())

	out := p.intake.Handle(context.Background(), groupMessage(2, 123456, textSeg("hello everyone")))
	if out == nil || out.Matched {
		t.Errorf("Expected no match, got %+v", out)
	}
	if len(p.mailer.sent()) != 0 || len(p.notifier.titles) != 0 {
		t.Error("Expected nothing sent")
	}
}

func TestIntake_UnwatchedSourceIgnored(t *testing.T) {
	p := newTestPipeline(supplierSettings())

	p.intake.Handle(context.Background(), groupMessage(3, 999, textSeg("restock")))
	if len(p.mailer.sent()) != 0 {
		t.Error("Expected unwatched group to be ignored")
	}
}

func TestIntake_DelayedImageIsAttached(t *testing.T) {
	root := t.TempDir()
	oriDir := filepath.Join(root, "Pic", "Ori")
	thumbDir := filepath.Join(root, "Pic", "Thumb")
	for _, dir := range []string{oriDir, thumbDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	original := filepath.Join(oriDir, "abc.jpg")
	thumb := filepath.Join(thumbDir, "abc_720.jpg")

	go func() {
		time.Sleep(1500 * time.Millisecond)
		os.WriteFile(thumb, []byte("jpeg"), 0644)
	}()

	p := newTestPipeline(supplierSettings())
	start := time.Now()
	p.intake.Handle(context.Background(), groupMessage(4, 123456, textSeg("restock "), imageSeg(original)))
	elapsed := time.Since(start)

	mails := p.mailer.sent()
	if len(mails) != 1 {
		t.Fatalf("Expected one mail, got %d", len(mails))
	}
	if len(mails[0].Images) != 1 || mails[0].Images[0] != thumb {
		t.Errorf("Expected resolved thumbnail %s, got %v", thumb, mails[0].Images)
	}
	if !strings.Contains(mails[0].HTMLBody, "cid:image_0") {
		t.Error("Expected inline image in HTML body")
	}
	if elapsed > 5*time.Second {
		t.Errorf("Expected resolution soon after the file appeared, took %v", elapsed)
	}
}

func TestIntake_DuplicateEventSkipped(t *testing.T) {
	p := newTestPipeline(supplierSettings())
	ev := groupMessage(5, 123456, textSeg("restock"))

	p.intake.Handle(context.Background(), ev)
	if out := p.intake.Handle(context.Background(), ev); out != nil {
		t.Errorf("Expected duplicate to be skipped, got %+v", out)
	}
	if len(p.mailer.sent()) != 1 {
		t.Errorf("Expected a single mail, got %d", len(p.mailer.sent()))
	}
	if p.intake.Stats().Duplicates != 1 {
		t.Error("Expected duplicate to be counted")
	}
}

func TestIntake_PluginDisabled(t *testing.T) {
	settings := supplierSettings()
	settings.PluginEnabled = false
	p := newTestPipeline(settings)

	if out := p.intake.Handle(context.Background(), groupMessage(6, 123456, textSeg("restock"))); out != nil {
		t.Errorf("Expected disabled plugin to skip, got %+v", out)
	}
	if len(p.mailer.sent()) != 0 {
		t.Error("Expected nothing sent")
	}
}

func TestIntake_PanicIsContained(t *testing.T) {
	p := newTestPipeline(supplierSettings())
	p.settings.panic = true

	if out := p.intake.Handle(context.Background(), groupMessage(7, 123456, textSeg("restock"))); out != nil {
		t.Errorf("Expected nil outcome after panic, got %+v", out)
	}
	if len(p.notifier.titles) != 1 || p.notifier.titles[0] != "BuyTheWay 错误" {
		t.Errorf("Expected panic notification, got %v", p.notifier.titles)
	}
}

func TestIntake_RunDrainsEvents(t *testing.T) {
	p := newTestPipeline(supplierSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.events.ch <- groupMessage(8, 123456, textSeg("restock A"))
	p.events.ch <- groupMessage(9, 123456, textSeg("restock B"))
	close(p.events.ch)

	if err := p.intake.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(p.mailer.sent()) != 2 {
		t.Errorf("Expected 2 mails, got %d", len(p.mailer.sent()))
	}
	if len(p.history.recorded()) != 2 {
		t.Errorf("Expected 2 history records, got %d", len(p.history.recorded()))
	}
}
