package biz

import (
	"log/slog"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/biz/usecase"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

// Ports are the adapters the usecases depend on. Feishu and Filter may be nil.
type Ports struct {
	Prober   repo.FileProber
	Mailer   repo.MailSender
	Runtime  repo.ChatRuntime
	Feishu   repo.ChatPoster
	Notifier repo.Notifier
	Filter   repo.FilterRepo
	History  repo.HistoryRepo
}

// Usecases contains all usecases
type Usecases struct {
	Resolver   *usecase.ImageResolver
	Dispatcher *usecase.ForwardDispatcher
	Filter     *usecase.FilterUsecase
	Forward    *usecase.ForwardUsecase
}

// NewUsecases wires the forward pipeline from its ports
func NewUsecases(p Ports, logger *slog.Logger) *Usecases {
	resolver := usecase.NewImageResolver(p.Prober, backoff.DefaultImagePolicy(), logger)
	dispatcher := usecase.NewForwardDispatcher(p.Mailer, p.Runtime, p.Feishu, p.Notifier, logger)
	filter := usecase.NewFilterUsecase(p.Filter)
	return &Usecases{
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Filter:     filter,
		Forward:    usecase.NewForwardUsecase(resolver, dispatcher, filter, p.History, logger),
	}
}
