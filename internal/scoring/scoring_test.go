package scoring

import (
	"testing"

	"medquiz-service/internal/domain"
)

func TestScoreAllCorrect(t *testing.T) {
	// 5 correct answers over easy, easy, medium, medium, hard.
	difficulties := []domain.Difficulty{
		domain.DifficultyEasy, domain.DifficultyEasy,
		domain.DifficultyMedium, domain.DifficultyMedium,
		domain.DifficultyHard,
	}
	answers, questions := buildAnswers(difficulties, []bool{true, true, true, true, true})

	summary := Score(answers, questions)
	if summary.PointsEarned != 24 {
		t.Fatalf("expected 24 points, got %d", summary.PointsEarned)
	}
	if summary.CorrectCount != 5 || summary.TotalCount != 5 {
		t.Fatalf("expected 5/5, got %d/%d", summary.CorrectCount, summary.TotalCount)
	}
	if summary.Percent() != 100 {
		t.Fatalf("expected 100%%, got %d", summary.Percent())
	}
}

func TestScorePartiallyCorrectRounds(t *testing.T) {
	// One correct medium answer out of three.
	difficulties := []domain.Difficulty{
		domain.DifficultyMedium, domain.DifficultyEasy, domain.DifficultyHard,
	}
	answers, questions := buildAnswers(difficulties, []bool{true, false, false})

	summary := Score(answers, questions)
	if summary.PointsEarned != 5 {
		t.Fatalf("expected 5 points, got %d", summary.PointsEarned)
	}
	if summary.Percent() != 33 {
		t.Fatalf("expected 33%%, got %d", summary.Percent())
	}
}

func TestScoreTimedOutEarnsNothing(t *testing.T) {
	answers, questions := buildAnswers([]domain.Difficulty{domain.DifficultyHard}, []bool{true})
	answers[0].TimedOut = true

	summary := Score(answers, questions)
	if summary.PointsEarned != 0 || summary.CorrectCount != 0 {
		t.Fatalf("timed-out answer must earn nothing, got %+v", summary)
	}
}

func TestScoreDeterministic(t *testing.T) {
	difficulties := []domain.Difficulty{
		domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard,
	}
	answers, questions := buildAnswers(difficulties, []bool{true, false, true})

	first := Score(answers, questions)
	second := Score(answers, questions)
	if first != second {
		t.Fatalf("scoring not deterministic: %+v vs %+v", first, second)
	}
}

func TestScoreEmpty(t *testing.T) {
	summary := Score(nil, nil)
	if summary.PointsEarned != 0 || summary.Percent() != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestPotentialPoints(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Difficulty: domain.DifficultyEasy},
		{ID: "q2", Difficulty: domain.DifficultyMedium},
		{ID: "q3", Difficulty: domain.DifficultyHard},
	}
	if got := PotentialPoints(questions); got != 17 {
		t.Fatalf("expected 17 potential points, got %d", got)
	}
}

func TestSpeedRatingBuckets(t *testing.T) {
	cases := []struct {
		avg  float64
		want int
	}{
		{10, 5},
		{59.9, 5},
		{60, 3},
		{120, 3},
		{121, 1},
		{300, 1},
	}
	for _, tc := range cases {
		if got := SpeedRating(tc.avg); got != tc.want {
			t.Fatalf("SpeedRating(%v) = %d, want %d", tc.avg, got, tc.want)
		}
	}
}

func TestConsistencyRatingBands(t *testing.T) {
	cases := []struct {
		accuracy float64
		want     int
	}{
		{1.0, 5},
		{0.9, 5},
		{0.89, 4},
		{0.7, 4},
		{0.69, 3},
		{0.5, 3},
		{0.49, 2},
		{0, 2},
	}
	for _, tc := range cases {
		if got := ConsistencyRating(tc.accuracy); got != tc.want {
			t.Fatalf("ConsistencyRating(%v) = %d, want %d", tc.accuracy, got, tc.want)
		}
	}
}

func buildAnswers(difficulties []domain.Difficulty, correct []bool) ([]domain.AnsweredQuestion, map[string]domain.Question) {
	answers := make([]domain.AnsweredQuestion, len(difficulties))
	questions := make(map[string]domain.Question, len(difficulties))
	for i, d := range difficulties {
		id := string(rune('a' + i))
		questions[id] = domain.Question{ID: id, Difficulty: d}
		answers[i] = domain.AnsweredQuestion{QuestionID: id, Correct: correct[i]}
	}
	return answers, questions
}
