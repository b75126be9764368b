package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"medquiz-service/internal/domain"
)

// Gateway is the Postgres write side of the persistence boundary. Failures
// are classified for the retry policy: server-side rejections (constraint or
// data errors) map to domain.ErrGatewayRejected, everything else (network,
// timeouts) to domain.ErrGatewayUnavailable.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

func (g *Gateway) CreateSession(ctx context.Context, record domain.SessionRecord) error {
	ids, err := json.Marshal(record.QuestionIDs)
	if err != nil {
		return fmt.Errorf("%w: marshal question ids: %v", domain.ErrGatewayRejected, err)
	}
	_, err = g.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (id, user_id, mode, question_ids, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		record.ID, record.UserID, string(record.Mode), ids, record.StartedAt)
	return classify("create session", err)
}

func (g *Gateway) RecordAnswer(ctx context.Context, sessionID string, answer domain.AnsweredQuestion) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO quiz_answers (session_id, question_id, selected_index, correct, timed_out, time_spent_seconds, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, question_id) DO UPDATE SET
			selected_index = EXCLUDED.selected_index,
			correct = EXCLUDED.correct,
			timed_out = EXCLUDED.timed_out,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			submitted_at = EXCLUDED.submitted_at`,
		sessionID, answer.QuestionID, answer.SelectedIndex, answer.Correct,
		answer.TimedOut, answer.TimeSpentSeconds(), answer.SubmittedAt)
	return classify("record answer", err)
}

func (g *Gateway) SubmitResult(ctx context.Context, result domain.QuizResult) error {
	accuracy, err := json.Marshal(result.CategoryAccuracy)
	if err != nil {
		return fmt.Errorf("%w: marshal category accuracy: %v", domain.ErrGatewayRejected, err)
	}
	strengths, err := json.Marshal(result.Strengths)
	if err != nil {
		return fmt.Errorf("%w: marshal strengths: %v", domain.ErrGatewayRejected, err)
	}
	improvements, err := json.Marshal(result.Improvements)
	if err != nil {
		return fmt.Errorf("%w: marshal improvements: %v", domain.ErrGatewayRejected, err)
	}
	// Results are written once; a replayed submission is a no-op.
	_, err = g.pool.Exec(ctx, `
		INSERT INTO quiz_results (session_id, user_id, correct_count, total_count, score_percent,
			points_earned, total_time_seconds, category_accuracy, strengths, improvements,
			speed_rating, consistency_rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.UserID, result.CorrectCount, result.TotalCount,
		result.ScorePercent, result.PointsEarned, result.TotalTimeSeconds,
		accuracy, strengths, improvements,
		result.SpeedRating, result.ConsistencyRating, result.CreatedAt)
	return classify("submit result", err)
}

func (g *Gateway) UpdateUserStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, quizzes_completed, questions_answered, correct_answers, points_earned, time_spent_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			quizzes_completed = user_stats.quizzes_completed + EXCLUDED.quizzes_completed,
			questions_answered = user_stats.questions_answered + EXCLUDED.questions_answered,
			correct_answers = user_stats.correct_answers + EXCLUDED.correct_answers,
			points_earned = user_stats.points_earned + EXCLUDED.points_earned,
			time_spent_seconds = user_stats.time_spent_seconds + EXCLUDED.time_spent_seconds`,
		userID, delta.QuizzesCompleted, delta.QuestionsAnswered,
		delta.CorrectAnswers, delta.PointsEarned, delta.TimeSpentSeconds)
	return classify("update user stats", err)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrGatewayRejected, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, err)
}
