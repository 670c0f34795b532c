package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

type mockMailer struct {
	mu    sync.Mutex
	mails []*repo.Mail
	err   error
	panic bool
}

func (m *mockMailer) Send(ctx context.Context, cfg domain.EmailSettings, mail *repo.Mail) error {
	if m.panic {
		panic("smtp exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mails = append(m.mails, mail)
	return nil
}

type sent struct {
	kind    string
	id      string
	payload repo.Payload
}

type mockRuntime struct {
	mu          sync.Mutex
	sent        []sent
	failImages  bool
	failTargets map[string]bool
}

func (m *mockRuntime) send(kind, id string, p repo.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTargets[id] {
		return errors.New("target not found")
	}
	if m.failImages && len(p.Images) > 0 {
		return errors.New("image upload rejected")
	}
	m.sent = append(m.sent, sent{kind: kind, id: id, payload: p})
	return nil
}

func (m *mockRuntime) SendToContact(ctx context.Context, id string, p repo.Payload) error {
	return m.send("contact", id, p)
}

func (m *mockRuntime) SendToGroup(ctx context.Context, id string, p repo.Payload) error {
	return m.send("group", id, p)
}

type mockNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (m *mockNotifier) Notify(ctx context.Context, title, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, body)
}

type mockPoster struct {
	texts  []string
	images []string
}

func (m *mockPoster) PostText(ctx context.Context, chatID, text string) error {
	m.texts = append(m.texts, chatID+":"+text)
	return nil
}

func (m *mockPoster) PostImage(ctx context.Context, chatID, path string) error {
	m.images = append(m.images, chatID+":"+path)
	return nil
}

func completeEmail() domain.EmailSettings {
	return domain.EmailSettings{Enabled: true, Host: "smtp.example.com", Port: 465, Secure: true, User: "bot@example.com", Pass: "secret", To: "me@example.com"}
}

func testMessage() *domain.CanonicalMessage {
	return &domain.CanonicalMessage{
		SourceID:    "123456",
		SourceLabel: "123456 (supplier A)",
		Text:        "Restock tomorrow!",
		Timestamp:   "2025/5/1 10:00:00",
	}
}

func TestDispatch_EmailFailureDoesNotBlockRelay(t *testing.T) {
	mailer := &mockMailer{err: errors.New("connection refused")}
	runtime := &mockRuntime{}
	notifier := &mockNotifier{}
	d := NewForwardDispatcher(mailer, runtime, nil, notifier, testLogger())

	cfg := domain.ForwardConfig{
		Email:    completeEmail(),
		Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"10001 (me)"}},
	}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if len(runtime.sent) != 1 || runtime.sent[0].id != "10001" {
		t.Fatalf("Expected contact relay to deliver, got %v", runtime.sent)
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(res.Outcomes))
	}
	if res.Outcomes[0].Sink != domain.SinkEmail || res.Outcomes[0].OK {
		t.Errorf("Expected failed email outcome, got %+v", res.Outcomes[0])
	}
	if !res.Outcomes[1].OK {
		t.Errorf("Expected contact outcome to succeed, got %+v", res.Outcomes[1])
	}
	if len(notifier.titles) != 1 || notifier.titles[0] != "BuyTheWay 邮件错误" {
		t.Errorf("Expected a local email error notice, got %v", notifier.titles)
	}
}

func TestDispatch_EmailPanicIsIsolated(t *testing.T) {
	runtime := &mockRuntime{}
	d := NewForwardDispatcher(&mockMailer{panic: true}, runtime, nil, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{
		Email:  completeEmail(),
		Groups: domain.RelaySettings{Enabled: true, Targets: []string{"555"}},
	}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if len(runtime.sent) != 1 || runtime.sent[0].kind != "group" {
		t.Errorf("Expected group relay after email panic, got %v", runtime.sent)
	}
	if !strings.HasPrefix(res.Outcomes[0].Error, "panic:") {
		t.Errorf("Expected panic outcome, got %+v", res.Outcomes[0])
	}
}

func TestDispatch_EmailContent(t *testing.T) {
	mailer := &mockMailer{}
	d := NewForwardDispatcher(mailer, nil, nil, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{Email: completeEmail(), Template: domain.TemplateDefault}
	d.Dispatch(context.Background(), testMessage(), []string{"/tmp/a_720.jpg"}, cfg)

	if len(mailer.mails) != 1 {
		t.Fatalf("Expected one mail, got %d", len(mailer.mails))
	}
	mail := mailer.mails[0]
	if mail.Subject != "BuyTheWay 消息匹配: 123456 (supplier A)" {
		t.Errorf("Unexpected subject '%s'", mail.Subject)
	}
	if !strings.Contains(mail.HTMLBody, "cid:image_0") {
		t.Error("Expected inline image reference in HTML body")
	}
	if len(mail.Images) != 1 || mail.Images[0] != "/tmp/a_720.jpg" {
		t.Errorf("Expected attached image, got %v", mail.Images)
	}
}

func TestDispatch_IncompleteEmailFallsBackToLocal(t *testing.T) {
	mailer := &mockMailer{}
	notifier := &mockNotifier{}
	d := NewForwardDispatcher(mailer, &mockRuntime{}, nil, notifier, testLogger())

	email := completeEmail()
	email.Pass = ""
	res := d.Dispatch(context.Background(), testMessage(), nil, domain.ForwardConfig{Email: email})

	if len(mailer.mails) != 0 {
		t.Error("Expected incomplete email config to skip sending")
	}
	if res.Attempted {
		t.Error("Expected no sink to be attempted")
	}
	if len(notifier.bodies) != 1 || !strings.Contains(notifier.bodies[0], "Restock tomorrow!") {
		t.Errorf("Expected local notification with body, got %v", notifier.bodies)
	}
}

func TestDispatch_NoSinksFallsBackToLocal(t *testing.T) {
	notifier := &mockNotifier{}
	runtime := &mockRuntime{}
	d := NewForwardDispatcher(nil, runtime, nil, notifier, testLogger())

	cfg := domain.ForwardConfig{
		Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"no ids here"}},
	}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if len(runtime.sent) != 0 {
		t.Errorf("Expected nothing relayed, got %v", runtime.sent)
	}
	if len(notifier.titles) != 1 || notifier.titles[0] != "BuyTheWay 消息匹配: 123456 (supplier A)" {
		t.Errorf("Expected fallback notification, got %v", notifier.titles)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Sink != domain.SinkLocal || !res.Outcomes[0].OK {
		t.Errorf("Expected local outcome, got %+v", res.Outcomes)
	}
}

func TestDispatch_AllSinksFailFallsBackToLocal(t *testing.T) {
	mailer := &mockMailer{err: errors.New("connection refused")}
	runtime := &mockRuntime{failTargets: map[string]bool{"1": true, "555": true}}
	notifier := &mockNotifier{}
	d := NewForwardDispatcher(mailer, runtime, nil, notifier, testLogger())

	cfg := domain.ForwardConfig{
		Email:    completeEmail(),
		Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"1"}},
		Groups:   domain.RelaySettings{Enabled: true, Targets: []string{"555"}},
	}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if !res.Attempted {
		t.Error("Expected sinks to be attempted")
	}
	if res.Delivered() {
		t.Error("Expected no sink to deliver")
	}
	last := res.Outcomes[len(res.Outcomes)-1]
	if last.Sink != domain.SinkLocal || !last.OK {
		t.Errorf("Expected local outcome last, got %+v", last)
	}
	found := false
	for i, title := range notifier.titles {
		if title == "BuyTheWay 消息匹配: 123456 (supplier A)" && strings.Contains(notifier.bodies[i], "Restock tomorrow!") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected local notification of the message, got %v", notifier.titles)
	}
}

func TestDispatch_PartialSuccessSkipsLocal(t *testing.T) {
	runtime := &mockRuntime{failTargets: map[string]bool{"2": true}}
	notifier := &mockNotifier{}
	d := NewForwardDispatcher(nil, runtime, nil, notifier, testLogger())

	cfg := domain.ForwardConfig{Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"1", "2"}}}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if !res.Delivered() {
		t.Error("Expected delivery to target 1")
	}
	if len(notifier.titles) != 0 {
		t.Errorf("Expected no local notification, got %v", notifier.titles)
	}
}

func TestDispatch_RelayFallsBackToText(t *testing.T) {
	runtime := &mockRuntime{failImages: true}
	d := NewForwardDispatcher(nil, runtime, nil, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{Groups: domain.RelaySettings{Enabled: true, Targets: []string{"555"}}}
	res := d.Dispatch(context.Background(), testMessage(), []string{"/tmp/a.jpg", "/tmp/b.jpg"}, cfg)

	if len(runtime.sent) != 1 {
		t.Fatalf("Expected one text-only delivery, got %v", runtime.sent)
	}
	p := runtime.sent[0].payload
	if len(p.Images) != 0 || !strings.HasSuffix(p.Text, "[包含 2 张图片]") {
		t.Errorf("Expected text fallback with image hint, got %+v", p)
	}
	if !res.Outcomes[0].OK {
		t.Errorf("Expected fallback delivery to count as success, got %+v", res.Outcomes[0])
	}
}

func TestDispatch_RelayWithImagesSendsChain(t *testing.T) {
	runtime := &mockRuntime{}
	d := NewForwardDispatcher(nil, runtime, nil, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"1"}}}
	d.Dispatch(context.Background(), testMessage(), []string{"/tmp/a.jpg"}, cfg)

	p := runtime.sent[0].payload
	if len(p.Images) != 1 || strings.Contains(p.Text, "包含") {
		t.Errorf("Expected chain text plus image, got %+v", p)
	}
}

func TestDispatch_TargetFailureContinues(t *testing.T) {
	runtime := &mockRuntime{failTargets: map[string]bool{"2": true}}
	d := NewForwardDispatcher(nil, runtime, nil, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{Contacts: domain.RelaySettings{Enabled: true, Targets: []string{"1", "2", "3"}}}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if len(runtime.sent) != 2 {
		t.Errorf("Expected deliveries to 1 and 3, got %v", runtime.sent)
	}
	if res.Outcomes[1].OK || res.Outcomes[1].Target != "2" {
		t.Errorf("Expected failure for target 2, got %+v", res.Outcomes[1])
	}
}

func TestDispatch_RelayWithoutRuntime(t *testing.T) {
	notifier := &mockNotifier{}
	d := NewForwardDispatcher(nil, nil, nil, notifier, testLogger())

	cfg := domain.ForwardConfig{Groups: domain.RelaySettings{Enabled: true, Targets: []string{"9"}}}
	res := d.Dispatch(context.Background(), testMessage(), nil, cfg)

	if res.Outcomes[0].Error != ErrSinkNotReady.Error() {
		t.Errorf("Expected not-ready outcome, got %+v", res.Outcomes[0])
	}
	if len(notifier.titles) != 1 {
		t.Error("Expected local fallback when no transport is wired")
	}
}

func TestDispatch_Feishu(t *testing.T) {
	poster := &mockPoster{}
	d := NewForwardDispatcher(nil, nil, poster, &mockNotifier{}, testLogger())

	cfg := domain.ForwardConfig{Feishu: domain.FeishuSettings{Enabled: true, ChatIDs: []string{"oc_1"}, SendImages: true}}
	res := d.Dispatch(context.Background(), testMessage(), []string{"/tmp/a.jpg"}, cfg)

	if len(poster.texts) != 1 || !strings.HasPrefix(poster.texts[0], "oc_1:来源: 123456") {
		t.Errorf("Unexpected Feishu texts %v", poster.texts)
	}
	if len(poster.images) != 1 {
		t.Errorf("Expected one Feishu image, got %v", poster.images)
	}
	if !res.Attempted {
		t.Error("Expected Feishu to count as attempted")
	}
}
