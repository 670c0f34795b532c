package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

type mockFilterRepo struct {
	relevant bool
	err      error
	calls    int
	keywords []string
}

func (m *mockFilterRepo) IsRelevant(ctx context.Context, message string, keywords []string, prompt string) (bool, error) {
	m.calls++
	m.keywords = keywords
	return m.relevant, m.err
}

func TestFilterUsecase_Disabled(t *testing.T) {
	repo := &mockFilterRepo{}
	uc := NewFilterUsecase(repo)

	ok, err := uc.ShouldForward(context.Background(), testMessage(), domain.DefaultSettings())
	if err != nil || !ok {
		t.Errorf("Expected pass-through when disabled, got %v %v", ok, err)
	}
	if repo.calls != 0 {
		t.Error("Expected filter not to be consulted")
	}
}

func TestFilterUsecase_NoRepo(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Filter.Enabled = true

	ok, _ := NewFilterUsecase(nil).ShouldForward(context.Background(), testMessage(), settings)
	if !ok {
		t.Error("Expected pass-through without a filter model")
	}
}

func TestFilterUsecase_Consulted(t *testing.T) {
	repo := &mockFilterRepo{relevant: false}
	settings := domain.DefaultSettings()
	settings.Filter.Enabled = true
	settings.Keywords = []string{"restock"}

	ok, err := NewFilterUsecase(repo).ShouldForward(context.Background(), testMessage(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Expected filter verdict to be returned")
	}
	if len(repo.keywords) != 1 || repo.keywords[0] != "restock" {
		t.Errorf("Expected keywords to be passed, got %v", repo.keywords)
	}
}

func TestFilterUsecase_MediaOnlySkipsModel(t *testing.T) {
	repo := &mockFilterRepo{err: errors.New("should not be called")}
	settings := domain.DefaultSettings()
	settings.Filter.Enabled = true

	msg := testMessage()
	msg.Text = domain.MediaPlaceholder
	msg.MediaRefs = []domain.MediaRef{{OriginalPath: "/a.jpg"}}

	ok, err := NewFilterUsecase(repo).ShouldForward(context.Background(), msg, settings)
	if err != nil || !ok {
		t.Errorf("Expected media-only message to pass, got %v %v", ok, err)
	}
}
