// Package report builds the persisted QuizResult from a finished session's
// answers: score, per-category accuracy, strength/improvement classification,
// and speed/consistency ratings.
package report

import (
	"sort"
	"time"

	"medquiz-service/internal/domain"
	"medquiz-service/internal/scoring"
)

const (
	strengthThreshold    = 0.8
	improvementThreshold = 0.5
)

// Input carries the session fields the aggregator needs. The session's answer
// insertion order is preserved in Answers.
type Input struct {
	SessionID string
	UserID    string
	Answers   []domain.AnsweredQuestion
	Questions map[string]domain.Question
	Elapsed   time.Duration
	Now       time.Time
}

// Aggregate computes the immutable QuizResult for a completed session.
// It is deterministic: the same answers and question metadata always yield
// the same counts, points, and classifications.
func Aggregate(in Input) domain.QuizResult {
	summary := scoring.Score(in.Answers, in.Questions)

	type tally struct{ correct, total int }
	byCategory := make(map[string]*tally)
	for _, ans := range in.Answers {
		q, ok := in.Questions[ans.QuestionID]
		if !ok {
			continue
		}
		t := byCategory[q.Category]
		if t == nil {
			t = &tally{}
			byCategory[q.Category] = t
		}
		t.total++
		if ans.Correct {
			t.correct++
		}
	}

	accuracy := make(map[string]float64, len(byCategory))
	var strengths, improvements []string
	for category, t := range byCategory {
		if t.total == 0 {
			continue
		}
		acc := float64(t.correct) / float64(t.total)
		accuracy[category] = acc
		switch {
		case acc >= strengthThreshold:
			strengths = append(strengths, category)
		case acc < improvementThreshold:
			improvements = append(improvements, category)
		}
	}
	sort.Strings(strengths)
	sort.Strings(improvements)

	avgSeconds := 0.0
	if summary.TotalCount > 0 {
		avgSeconds = in.Elapsed.Seconds() / float64(summary.TotalCount)
	}
	overallAccuracy := 0.0
	if summary.TotalCount > 0 {
		overallAccuracy = float64(summary.CorrectCount) / float64(summary.TotalCount)
	}

	return domain.QuizResult{
		SessionID:         in.SessionID,
		UserID:            in.UserID,
		CorrectCount:      summary.CorrectCount,
		TotalCount:        summary.TotalCount,
		ScorePercent:      summary.Percent(),
		PointsEarned:      summary.PointsEarned,
		TotalTimeSeconds:  int(in.Elapsed.Round(time.Second) / time.Second),
		CategoryAccuracy:  accuracy,
		Strengths:         strengths,
		Improvements:      improvements,
		SpeedRating:       scoring.SpeedRating(avgSeconds),
		ConsistencyRating: scoring.ConsistencyRating(overallAccuracy),
		CreatedAt:         in.Now,
	}
}
