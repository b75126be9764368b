package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medquiz-service/internal/domain"
	"medquiz-service/internal/scoring"
)

// QuestionRepository is the read side of the persistence boundary: it fetches
// a question set matching a filter (in-memory, Redis-cached, Postgres, etc).
type QuestionRepository interface {
	FetchQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// Gateway is the write side of the persistence boundary. Implementations wrap
// failures as domain.ErrGatewayUnavailable (transient) or
// domain.ErrGatewayRejected (permanent); callers retry transient failures once.
type Gateway interface {
	CreateSession(ctx context.Context, record domain.SessionRecord) error
	RecordAnswer(ctx context.Context, sessionID string, answer domain.AnsweredQuestion) error
	SubmitResult(ctx context.Context, result domain.QuizResult) error
	UpdateUserStats(ctx context.Context, userID string, delta domain.StatsDelta) error
}

// SessionRegistry tracks live sessions by identifier. Sessions are fully
// independent; the registry shares no per-session locks.
type SessionRegistry interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Remove(sessionID string)
}

// Config sizes and paces sessions per mode.
type Config struct {
	QuickCount       int
	TimedCount       int
	TimedBudget      time.Duration
	AutoAdvanceDelay time.Duration
	RecordTimeout    time.Duration
}

// DefaultConfig returns production defaults: 5-question quick sessions with a
// 1s auto-advance, 10-question timed sessions with a 15 minute budget.
func DefaultConfig() Config {
	return Config{
		QuickCount:       5,
		TimedCount:       10,
		TimedBudget:      15 * time.Minute,
		AutoAdvanceDelay: time.Second,
		RecordTimeout:    3 * time.Second,
	}
}

// CreateOptions tunes session creation. Filter is honored for custom mode;
// AllowShort accepts a session shorter than requested instead of failing.
type CreateOptions struct {
	Filter     domain.QuestionFilter
	AllowShort bool
}

// QuizService contains the quiz use cases: session creation, the mutating
// entry points delegated to the per-session state machine, and previews.
type QuizService struct {
	registry  SessionRegistry
	questions QuestionRepository
	gateway   Gateway
	cfg       Config
	logger    *zap.Logger
	clock     func() time.Time
}

func NewQuizService(registry SessionRegistry, questions QuestionRepository, gateway Gateway, cfg Config, logger *zap.Logger) *QuizService {
	return newQuizServiceWithClock(registry, questions, gateway, cfg, logger, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(registry SessionRegistry, questions QuestionRepository, gateway Gateway, cfg Config, logger *zap.Logger, now func() time.Time) *QuizService {
	return newQuizServiceWithClock(registry, questions, gateway, cfg, logger, now)
}

func newQuizServiceWithClock(registry SessionRegistry, questions QuestionRepository, gateway Gateway, cfg Config, logger *zap.Logger, now func() time.Time) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		registry:  registry,
		questions: questions,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		clock:     now,
	}
}

// Create fetches a question set sized for the mode and starts a new session.
// The session is created only with the questions actually returned; a short
// fetch fails with InsufficientQuestionsError unless opts.AllowShort is set.
func (s *QuizService) Create(ctx context.Context, userID string, mode domain.Mode, opts CreateOptions) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", domain.ErrSessionInit)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrSessionInit, mode)
	}

	filter := opts.Filter
	switch mode {
	case domain.ModeQuick:
		filter.Count = s.cfg.QuickCount
	case domain.ModeTimed:
		filter.Count = s.cfg.TimedCount
	case domain.ModeCustom:
		if filter.Count <= 0 {
			filter.Count = s.cfg.QuickCount
		}
	}

	questions, err := s.questions.FetchQuestions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionInit, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions matched filter", domain.ErrSessionInit)
	}
	if len(questions) < filter.Count && !opts.AllowShort {
		return nil, &domain.InsufficientQuestionsError{Requested: filter.Count, Available: len(questions)}
	}

	var autoDelay, budget time.Duration
	switch mode {
	case domain.ModeQuick:
		autoDelay = s.cfg.AutoAdvanceDelay
	case domain.ModeTimed:
		budget = s.cfg.TimedBudget
	}

	session := newSession(sessionParams{
		id:            uuid.NewString(),
		userID:        userID,
		mode:          mode,
		questions:     questions,
		autoDelay:     autoDelay,
		budget:        budget,
		recordTimeout: s.cfg.RecordTimeout,
		gateway:       s.gateway,
		logger:        s.logger,
		now:           s.clock,
	})

	record := domain.SessionRecord{
		ID:          session.id,
		UserID:      userID,
		Mode:        mode,
		QuestionIDs: questionIDs(questions),
		StartedAt:   session.startedAt,
	}
	if err := retryTransient(ctx, func(c context.Context) error {
		return s.gateway.CreateSession(c, record)
	}); err != nil {
		if errors.Is(err, domain.ErrGatewayRejected) {
			return nil, err
		}
		// Transient outage: the session proceeds locally, answers and the
		// result flush to the gateway on their own schedule.
		s.logger.Warn("session record not persisted",
			zap.String("sessionId", session.id), zap.Error(err))
	}

	s.registry.Put(session)
	return session, nil
}

// Get looks up a live session.
func (s *QuizService) Get(sessionID string) (*Session, bool) {
	return s.registry.Get(sessionID)
}

// SubmitAnswer records an answer against the session's current question.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, optionIndex int) (domain.AnswerFeedback, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.AnswerFeedback{}, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(ctx, optionIndex)
}

// Advance moves the session forward; on completion the aggregated result is
// returned, possibly with a domain.ErrResultNotPersisted warning.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (*domain.QuizResult, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Advance(ctx)
}

// Abandon terminates a session without a result and drops it from the registry.
func (s *QuizService) Abandon(ctx context.Context, sessionID string) error {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.Abandon(ctx); err != nil {
		return err
	}
	s.registry.Remove(sessionID)
	return nil
}

// Release cleans up after a client disconnect: still-active sessions are
// abandoned, terminal sessions are simply dropped from the registry.
func (s *QuizService) Release(ctx context.Context, sessionID string) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return
	}
	if err := session.Abandon(ctx); err != nil && !errors.Is(err, domain.ErrInvalidState) {
		s.logger.Warn("session release failed", zap.String("sessionId", sessionID), zap.Error(err))
	}
	s.registry.Remove(sessionID)
}

// Snapshot returns a read-only projection of a session.
func (s *QuizService) Snapshot(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe streams snapshots for a session; see Session.Subscribe.
func (s *QuizService) Subscribe(sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// PotentialPoints previews the maximum point total for a filter without
// starting a session.
func (s *QuizService) PotentialPoints(ctx context.Context, filter domain.QuestionFilter) (int, error) {
	questions, err := s.questions.FetchQuestions(ctx, filter)
	if err != nil {
		return 0, err
	}
	return scoring.PotentialPoints(questions), nil
}

// retryTransient runs op and retries exactly once when the failure is
// transient. Permanent rejections propagate immediately.
func retryTransient(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !errors.Is(err, domain.ErrGatewayUnavailable) {
		return err
	}
	return op(ctx)
}

func questionIDs(questions []domain.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
