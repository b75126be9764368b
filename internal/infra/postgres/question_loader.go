package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"medquiz-service/internal/domain"
)

// QuestionLoader loads question pools from the Postgres question bank.
// Options are stored as JSONB; the caller's cache layer samples per session.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, options, correct_index, explanation, category, difficulty, created_at, updated_at
		FROM questions
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR difficulty = $2)`,
		filter.Category, string(filter.Difficulty))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var rawOptions []byte
		var difficulty string
		if err := rows.Scan(&q.ID, &q.Prompt, &rawOptions, &q.CorrectIndex,
			&q.Explanation, &q.Category, &difficulty, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		q.Difficulty = domain.Difficulty(difficulty)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
