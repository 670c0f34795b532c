package data

import (
	"context"
	"testing"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/infra/onebot"
)

type mockSender struct {
	kind string
	id   int64
	msg  []onebot.Segment
}

func (m *mockSender) SendPrivateMsg(ctx context.Context, userID int64, message []onebot.Segment) (int64, error) {
	m.kind, m.id, m.msg = "private", userID, message
	return 1, nil
}

func (m *mockSender) SendGroupMsg(ctx context.Context, groupID int64, message []onebot.Segment) (int64, error) {
	m.kind, m.id, m.msg = "group", groupID, message
	return 1, nil
}

func TestChatRuntime_SendToGroup(t *testing.T) {
	sender := &mockSender{}
	rt := NewChatRuntime(sender)

	err := rt.SendToGroup(context.Background(), "555", repo.Payload{Text: "hi", Images: []string{"/tmp/a.jpg"}})
	if err != nil {
		t.Fatal(err)
	}
	if sender.kind != "group" || sender.id != 555 {
		t.Errorf("Unexpected target %s %d", sender.kind, sender.id)
	}
	if len(sender.msg) != 2 || sender.msg[0].Type != "text" || sender.msg[1].Data["file"] != "file:///tmp/a.jpg" {
		t.Errorf("Unexpected segments %+v", sender.msg)
	}
}

func TestChatRuntime_ImagesOnly(t *testing.T) {
	sender := &mockSender{}
	if err := NewChatRuntime(sender).SendToContact(context.Background(), "10001", repo.Payload{Images: []string{"/x.png"}}); err != nil {
		t.Fatal(err)
	}
	if sender.kind != "private" || len(sender.msg) != 1 || sender.msg[0].Type != "image" {
		t.Errorf("Expected single image segment, got %+v", sender.msg)
	}
}

func TestChatRuntime_InvalidID(t *testing.T) {
	if err := NewChatRuntime(&mockSender{}).SendToGroup(context.Background(), "abc", repo.Payload{Text: "x"}); err == nil {
		t.Error("Expected error for non-numeric id")
	}
}

func TestFileURI(t *testing.T) {
	tests := map[string]string{
		"/tmp/a.jpg":            "file:///tmp/a.jpg",
		`C:\Users\me\Ori\a.jpg`: "file:///C:/Users/me/Ori/a.jpg",
		"https://multimedia.nt.qq.com.cn/download/abc.jpg": "https://multimedia.nt.qq.com.cn/download/abc.jpg",
		"file:///tmp/b.jpg": "file:///tmp/b.jpg",
	}
	for in, want := range tests {
		if got := fileURI(in); got != want {
			t.Errorf("fileURI(%q) = %q, want %q", in, got, want)
		}
	}
}
