package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"medquiz-service/internal/domain"
	"medquiz-service/internal/report"
)

// Session is the state machine for one quiz attempt. The question sequence is
// fixed at creation; the current index only moves forward. All mutating
// operations are serialized on the session mutex, so a session is safe to
// drive from multiple goroutines even though the UI uses a single flow.
type Session struct {
	id     string
	userID string
	mode   domain.Mode

	questions []domain.Question
	byID      map[string]domain.Question

	mu          sync.Mutex
	idx         int
	answers     map[string]*domain.AnsweredQuestion
	order       []string
	status      domain.Status
	startedAt   time.Time
	completedAt time.Time
	shownAt     time.Time
	elapsed     time.Duration
	result      *domain.QuizResult
	warning     error

	// At most one auto-advance timer is pending at a time; autoGen invalidates
	// callbacks from timers that were superseded before firing.
	autoDelay time.Duration
	autoTimer *time.Timer
	autoGen   int

	budgetTimer *time.Timer

	recordTimeout time.Duration
	gateway       Gateway
	logger        *zap.Logger
	now           func() time.Time

	subscribers map[chan domain.SessionSnapshot]struct{}
}

type sessionParams struct {
	id            string
	userID        string
	mode          domain.Mode
	questions     []domain.Question
	autoDelay     time.Duration
	budget        time.Duration
	recordTimeout time.Duration
	gateway       Gateway
	logger        *zap.Logger
	now           func() time.Time
}

func newSession(p sessionParams) *Session {
	byID := make(map[string]domain.Question, len(p.questions))
	for _, q := range p.questions {
		byID[q.ID] = q
	}
	start := p.now()
	s := &Session{
		id:            p.id,
		userID:        p.userID,
		mode:          p.mode,
		questions:     p.questions,
		byID:          byID,
		answers:       make(map[string]*domain.AnsweredQuestion, len(p.questions)),
		status:        domain.StatusActive,
		startedAt:     start,
		shownAt:       start,
		autoDelay:     p.autoDelay,
		recordTimeout: p.recordTimeout,
		gateway:       p.gateway,
		logger:        p.logger,
		now:           p.now,
		subscribers:   make(map[chan domain.SessionSnapshot]struct{}),
	}
	if p.budget > 0 {
		s.budgetTimer = time.AfterFunc(p.budget, s.expire)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SubmitAnswer records an answer for the question at the current index.
// Correctness is decided against the question's correct option as loaded.
// A failed gateway acknowledgement keeps the in-memory answer and marks it
// unacknowledged for a flush at completion; the submission itself succeeds.
func (s *Session) SubmitAnswer(ctx context.Context, optionIndex int) (domain.AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return domain.AnswerFeedback{}, domain.ErrInvalidState
	}
	q := s.questions[s.idx]
	if _, dup := s.answers[q.ID]; dup {
		return domain.AnswerFeedback{}, domain.ErrDuplicateAnswer
	}
	if !q.ValidOption(optionIndex) {
		return domain.AnswerFeedback{}, domain.ErrInvalidAnswer
	}

	now := s.now()
	spent := now.Sub(s.shownAt)
	if spent < 0 {
		spent = 0
	}
	ans := &domain.AnsweredQuestion{
		QuestionID:    q.ID,
		SelectedIndex: optionIndex,
		Correct:       optionIndex == q.CorrectIndex,
		TimeSpent:     spent,
		SubmittedAt:   now,
	}
	s.answers[q.ID] = ans
	s.order = append(s.order, q.ID)
	s.elapsed += spent

	s.persistAnswerLocked(ctx, ans)

	if s.mode == domain.ModeQuick {
		s.scheduleAutoAdvanceLocked()
	}

	points := 0
	if ans.Correct {
		points = q.Difficulty.Points()
	}
	s.broadcastLocked()
	return domain.AnswerFeedback{
		QuestionID:    q.ID,
		Correct:       ans.Correct,
		CorrectIndex:  q.CorrectIndex,
		Explanation:   q.Explanation,
		PointsAwarded: points,
		TimeSpent:     ans.TimeSpentSeconds(),
	}, nil
}

// Advance moves to the next question. The current question must already be
// answered. Answering the last question and advancing completes the session:
// the result is aggregated synchronously and returned. A non-nil result may
// arrive together with a non-nil error wrapping domain.ErrResultNotPersisted
// when the gateway submission failed after retry.
func (s *Session) Advance(ctx context.Context) (*domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return nil, domain.ErrInvalidState
	}
	if _, answered := s.answers[s.questions[s.idx].ID]; !answered {
		return nil, fmt.Errorf("%w: current question not answered", domain.ErrInvalidState)
	}
	s.cancelAutoAdvanceLocked()
	s.advanceLocked(ctx)
	if s.status == domain.StatusCompleted {
		return s.result, s.warning
	}
	return nil, nil
}

// Abandon terminates the session without producing a result. Pending timers
// are cancelled; in-flight persistence is left to finish on its own.
func (s *Session) Abandon(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return domain.ErrInvalidState
	}
	s.cancelAutoAdvanceLocked()
	s.stopBudgetTimerLocked()
	s.status = domain.StatusAbandoned
	s.completedAt = s.now()
	s.broadcastLocked()
	s.closeSubscribersLocked()
	return nil
}

// Snapshot returns a read-only projection of the session, callable from any state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every state change,
// starting with the current one. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) scheduleAutoAdvanceLocked() {
	s.cancelAutoAdvanceLocked()
	if s.autoDelay <= 0 {
		return
	}
	gen := s.autoGen
	s.autoTimer = time.AfterFunc(s.autoDelay, func() { s.autoAdvance(gen) })
}

// cancelAutoAdvanceLocked discards any pending auto-advance. Bumping autoGen
// also invalidates a callback that already fired and is waiting on the mutex.
func (s *Session) cancelAutoAdvanceLocked() {
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
	s.autoGen++
}

func (s *Session) autoAdvance(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive || gen != s.autoGen {
		return
	}
	s.autoTimer = nil
	s.advanceLocked(context.Background())
}

func (s *Session) stopBudgetTimerLocked() {
	if s.budgetTimer != nil {
		s.budgetTimer.Stop()
		s.budgetTimer = nil
	}
}

func (s *Session) advanceLocked(ctx context.Context) {
	s.idx++
	if s.idx >= len(s.questions) {
		s.completeLocked(ctx)
		return
	}
	s.shownAt = s.now()
	s.broadcastLocked()
}

// expire fires when a timed session's overall budget runs out. Every remaining
// unanswered question is recorded as timed out (incorrect, zero points) and the
// session completes without further input.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return
	}
	now := s.now()
	for i := s.idx; i < len(s.questions); i++ {
		q := s.questions[i]
		if _, answered := s.answers[q.ID]; answered {
			continue
		}
		spent := time.Duration(0)
		if i == s.idx {
			spent = now.Sub(s.shownAt)
			if spent < 0 {
				spent = 0
			}
		}
		ans := &domain.AnsweredQuestion{
			QuestionID:    q.ID,
			SelectedIndex: -1,
			TimedOut:      true,
			TimeSpent:     spent,
			SubmittedAt:   now,
		}
		s.answers[q.ID] = ans
		s.order = append(s.order, q.ID)
		s.elapsed += spent
	}
	s.cancelAutoAdvanceLocked()
	s.idx = len(s.questions)
	s.completeLocked(context.Background())
}

// completeLocked is the single completion path: flush unacknowledged answers,
// aggregate, submit with one retry, then transition to Completed. Completion
// never fails because persistence failed; a failed submission leaves the
// computed result on the session with a not-persisted warning.
func (s *Session) completeLocked(ctx context.Context) {
	s.cancelAutoAdvanceLocked()
	s.stopBudgetTimerLocked()
	s.flushUnackedLocked(ctx)

	now := s.now()
	result := report.Aggregate(report.Input{
		SessionID: s.id,
		UserID:    s.userID,
		Answers:   s.answerListLocked(),
		Questions: s.byID,
		Elapsed:   s.elapsed,
		Now:       now,
	})

	err := s.submitResultLocked(ctx, result)
	s.status = domain.StatusCompleted
	s.completedAt = now
	s.result = &result
	if err != nil {
		s.warning = fmt.Errorf("%w: %v", domain.ErrResultNotPersisted, err)
		s.logger.Warn("quiz result not persisted",
			zap.String("sessionId", s.id), zap.Error(err))
	} else {
		s.updateStatsLocked(ctx, result)
	}
	s.broadcastLocked()
	s.closeSubscribersLocked()
}

func (s *Session) persistAnswerLocked(ctx context.Context, ans *domain.AnsweredQuestion) {
	rctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()
	err := retryTransient(rctx, func(c context.Context) error {
		return s.gateway.RecordAnswer(c, s.id, *ans)
	})
	if err != nil {
		// Answer stays in memory unacknowledged; flushed again at completion.
		s.logger.Warn("answer not acknowledged",
			zap.String("sessionId", s.id),
			zap.String("questionId", ans.QuestionID),
			zap.Error(err))
		return
	}
	ans.Acked = true
}

func (s *Session) flushUnackedLocked(ctx context.Context) {
	for _, id := range s.order {
		ans := s.answers[id]
		if ans.Acked {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
		err := retryTransient(rctx, func(c context.Context) error {
			return s.gateway.RecordAnswer(c, s.id, *ans)
		})
		cancel()
		if err != nil {
			s.logger.Warn("answer flush failed",
				zap.String("sessionId", s.id),
				zap.String("questionId", ans.QuestionID),
				zap.Error(err))
			continue
		}
		ans.Acked = true
	}
}

func (s *Session) submitResultLocked(ctx context.Context, result domain.QuizResult) error {
	rctx, cancel := context.WithTimeout(ctx, 2*s.recordTimeout)
	defer cancel()
	return retryTransient(rctx, func(c context.Context) error {
		return s.gateway.SubmitResult(c, result)
	})
}

func (s *Session) updateStatsLocked(ctx context.Context, result domain.QuizResult) {
	delta := domain.StatsDelta{
		QuizzesCompleted:  1,
		QuestionsAnswered: result.TotalCount,
		CorrectAnswers:    result.CorrectCount,
		PointsEarned:      result.PointsEarned,
		TimeSpentSeconds:  result.TotalTimeSeconds,
	}
	rctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()
	if err := retryTransient(rctx, func(c context.Context) error {
		return s.gateway.UpdateUserStats(c, s.userID, delta)
	}); err != nil {
		s.logger.Warn("user stats update failed",
			zap.String("sessionId", s.id), zap.Error(err))
	}
}

func (s *Session) answerListLocked() []domain.AnsweredQuestion {
	answers := make([]domain.AnsweredQuestion, 0, len(s.order))
	for _, id := range s.order {
		answers = append(answers, *s.answers[id])
	}
	return answers
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:      s.id,
		UserID:         s.userID,
		Mode:           s.mode,
		Status:         s.status,
		CurrentIndex:   s.idx,
		TotalQuestions: len(s.questions),
		AnsweredCount:  len(s.order),
		Answers:        s.answerListLocked(),
		ElapsedSeconds: int(s.elapsed.Round(time.Second) / time.Second),
		StartedAt:      s.startedAt,
		Result:         s.result,
	}
	if s.status == domain.StatusActive && s.idx < len(s.questions) {
		q := s.questions[s.idx]
		snap.CurrentQuestion = &domain.QuestionView{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  q.Options,
			Category: q.Category,
		}
	}
	if !s.completedAt.IsZero() {
		completed := s.completedAt
		snap.CompletedAt = &completed
	}
	if s.warning != nil {
		snap.Warning = s.warning.Error()
	}
	return snap
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow reader cannot block the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
