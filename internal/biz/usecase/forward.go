package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// ForwardOutcome describes what happened to one inbound event
type ForwardOutcome struct {
	Message  domain.CanonicalMessage
	Matched  bool
	Filtered bool // matched, but rejected by the relevance filter
	Media    []string
	Result   DispatchResult
	Record   *domain.ForwardRecord
}

// ForwardUsecase runs the intake pipeline for one event:
// normalize, match, filter, resolve media, dispatch and record.
type ForwardUsecase struct {
	resolver    *ImageResolver
	dispatcher  *ForwardDispatcher
	filterUC    *FilterUsecase
	historyRepo repo.HistoryRepo
	logger      *slog.Logger
}

// NewForwardUsecase creates a new forward usecase.
// filterUC and historyRepo may be nil.
func NewForwardUsecase(
	resolver *ImageResolver,
	dispatcher *ForwardDispatcher,
	filterUC *FilterUsecase,
	historyRepo repo.HistoryRepo,
	logger *slog.Logger,
) *ForwardUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForwardUsecase{
		resolver:    resolver,
		dispatcher:  dispatcher,
		filterUC:    filterUC,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// Process handles raw under settings
func (uc *ForwardUsecase) Process(ctx context.Context, raw domain.RawEvent, settings *domain.Settings) *ForwardOutcome {
	msg := Normalize(raw, settings.WatchList)
	out := &ForwardOutcome{Message: msg}

	matcher := NewMatcher(settings.WatchList, settings.Keywords)
	if !matcher.IsMatch(&msg) {
		if matcher.Watches(msg.SourceID) {
			uc.logger.Debug("No keyword matched", "source", msg.SourceID)
		}
		return out
	}
	out.Matched = true
	uc.logger.Info("Message matched",
		"source", msg.SourceID,
		"label", msg.SourceLabel,
		"keyword", matcher.MatchedKeyword(&msg),
		"media", len(msg.MediaRefs))

	if uc.filterUC != nil {
		relevant, err := uc.filterUC.ShouldForward(ctx, &msg, settings)
		if err != nil {
			uc.logger.Warn("Relevance filter failed, forwarding anyway", "error", err)
		} else if !relevant {
			uc.logger.Info("Relevance filter rejected message", "source", msg.SourceID)
			out.Filtered = true
			return out
		}
	}

	resolver := uc.resolver.WithMaxWait(settings.Resolver.MaxWait)
	out.Media = resolver.ResolveAll(ctx, msg.MediaRefs)

	out.Result = uc.dispatcher.Dispatch(ctx, &msg, out.Media, settings.Forward)

	rec := &domain.ForwardRecord{
		MessageID:   msg.MessageID,
		SourceID:    msg.SourceID,
		SourceLabel: msg.SourceLabel,
		Text:        msg.Text,
		MediaCount:  len(out.Media),
		Outcomes:    out.Result.Outcomes,
		CreatedAt:   time.Now(),
	}
	out.Record = rec
	if uc.historyRepo != nil {
		if err := uc.historyRepo.Record(ctx, rec); err != nil {
			uc.logger.Error("Failed to record forward history", "error", err)
		}
	}
	return out
}

// DryRun reports whether a message from sourceID with text would be forwarded
func (uc *ForwardUsecase) DryRun(sourceID, text string, settings *domain.Settings) (bool, string) {
	msg := domain.NewCanonicalMessage("", domain.SourceGroup, sourceID,
		domain.LookupLabel(settings.WatchList, sourceID),
		[]domain.Segment{domain.TextSegment(text)}, time.Now())
	return NewMatcher(settings.WatchList, settings.Keywords).IsMatch(&msg), msg.SourceLabel
}

// Resolver returns the image resolver
func (uc *ForwardUsecase) Resolver() *ImageResolver {
	return uc.resolver
}
