package memory

import (
	"context"
	"fmt"
	"sync"

	"medquiz-service/internal/domain"
)

// Gateway is an in-memory implementation of app.Gateway for demo runs and
// tests. Writes are idempotent the way the Postgres gateway's upserts are.
type Gateway struct {
	mu       sync.Mutex
	sessions map[string]domain.SessionRecord
	answers  map[string]map[string]domain.AnsweredQuestion
	results  map[string]domain.QuizResult
	stats    map[string]domain.StatsDelta
}

func NewGateway() *Gateway {
	return &Gateway{
		sessions: make(map[string]domain.SessionRecord),
		answers:  make(map[string]map[string]domain.AnsweredQuestion),
		results:  make(map[string]domain.QuizResult),
		stats:    make(map[string]domain.StatsDelta),
	}
}

func (g *Gateway) CreateSession(_ context.Context, record domain.SessionRecord) error {
	if record.ID == "" || record.UserID == "" {
		return fmt.Errorf("%w: session record missing identifiers", domain.ErrGatewayRejected)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[record.ID] = record
	return nil
}

func (g *Gateway) RecordAnswer(_ context.Context, sessionID string, answer domain.AnsweredQuestion) error {
	if sessionID == "" || answer.QuestionID == "" {
		return fmt.Errorf("%w: answer missing identifiers", domain.ErrGatewayRejected)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	byQuestion := g.answers[sessionID]
	if byQuestion == nil {
		byQuestion = make(map[string]domain.AnsweredQuestion)
		g.answers[sessionID] = byQuestion
	}
	byQuestion[answer.QuestionID] = answer
	return nil
}

func (g *Gateway) SubmitResult(_ context.Context, result domain.QuizResult) error {
	if result.SessionID == "" {
		return fmt.Errorf("%w: result missing session id", domain.ErrGatewayRejected)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// Results are written once per session and never mutated.
	if _, exists := g.results[result.SessionID]; !exists {
		g.results[result.SessionID] = result
	}
	return nil
}

func (g *Gateway) UpdateUserStats(_ context.Context, userID string, delta domain.StatsDelta) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", domain.ErrGatewayRejected)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	current := g.stats[userID]
	current.QuizzesCompleted += delta.QuizzesCompleted
	current.QuestionsAnswered += delta.QuestionsAnswered
	current.CorrectAnswers += delta.CorrectAnswers
	current.PointsEarned += delta.PointsEarned
	current.TimeSpentSeconds += delta.TimeSpentSeconds
	g.stats[userID] = current
	return nil
}

// Result returns the stored result for a session, if any.
func (g *Gateway) Result(sessionID string) (domain.QuizResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	result, ok := g.results[sessionID]
	return result, ok
}

// AnswerCount reports how many answers were acknowledged for a session.
func (g *Gateway) AnswerCount(sessionID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.answers[sessionID])
}

// Stats returns the accumulated stats for a user.
func (g *Gateway) Stats(userID string) domain.StatsDelta {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats[userID]
}
