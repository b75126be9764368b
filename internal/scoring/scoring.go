// Package scoring implements the point and rating calculations as pure
// functions, usable independently of any session (e.g. potential-points
// previews before a quiz starts).
package scoring

import (
	"math"

	"medquiz-service/internal/domain"
)

// Summary is the output of scoring a set of answered questions.
type Summary struct {
	PointsEarned int
	CorrectCount int
	TotalCount   int
}

// Percent is the rounded percentage score (0 when nothing was answered).
func (s Summary) Percent() int {
	if s.TotalCount == 0 {
		return 0
	}
	return int(math.Round(float64(s.CorrectCount) / float64(s.TotalCount) * 100))
}

// Score maps answered questions to a point total and correct/total counts.
// Points are awarded per the question's difficulty, for correct answers only;
// incorrect or timed-out answers earn zero regardless of difficulty.
// Questions missing from metadata contribute to the counts but earn nothing.
func Score(answers []domain.AnsweredQuestion, questions map[string]domain.Question) Summary {
	summary := Summary{TotalCount: len(answers)}
	for _, ans := range answers {
		if !ans.Correct || ans.TimedOut {
			continue
		}
		summary.CorrectCount++
		if q, ok := questions[ans.QuestionID]; ok {
			summary.PointsEarned += q.Difficulty.Points()
		}
	}
	return summary
}

// PotentialPoints is the maximum attainable point total for a question set.
func PotentialPoints(questions []domain.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Difficulty.Points()
	}
	return total
}

// SpeedRating buckets the average seconds spent per question. The buckets are
// discrete: under a minute rates 5, one to two minutes rates 3, slower rates 1.
func SpeedRating(avgSecondsPerQuestion float64) int {
	switch {
	case avgSecondsPerQuestion < 60:
		return 5
	case avgSecondsPerQuestion <= 120:
		return 3
	default:
		return 1
	}
}

// ConsistencyRating bands overall accuracy (0..1) into a 2..5 rating.
func ConsistencyRating(accuracy float64) int {
	switch {
	case accuracy >= 0.9:
		return 5
	case accuracy >= 0.7:
		return 4
	case accuracy >= 0.5:
		return 3
	default:
		return 2
	}
}
