package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"medquiz-service/internal/domain"
	"medquiz-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleBank()),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)

	filter := domain.QuestionFilter{Category: "cardiology", Count: 1}
	got, err := repo.FetchQuestions(context.Background(), filter)
	if err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if len(got) != 1 || got[0].Category != "cardiology" {
		t.Fatalf("unexpected questions: %+v", got)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("questions:cardiology:") {
		t.Fatalf("expected pool cached in redis")
	}

	// Second call should hit the Redis cache.
	if _, err := repo.FetchQuestions(context.Background(), filter); err != nil {
		t.Fatalf("fetch questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositorySamplesFromCachedPool(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewStaticQuestionLoader(sampleBank()), time.Minute)

	got, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{Count: 2})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions sampled, got %d", len(got))
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, filter)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "Which artery supplies the inferior wall?",
			Options: []domain.Option{
				{Label: "A", Text: "RCA"},
				{Label: "B", Text: "LAD"},
			},
			CorrectIndex: 0,
			Category:     "cardiology",
			Difficulty:   domain.DifficultyMedium,
		},
		{
			ID:     "q2",
			Prompt: "First-line therapy for HFrEF?",
			Options: []domain.Option{
				{Label: "A", Text: "ACE inhibitor"},
				{Label: "B", Text: "CCB"},
			},
			CorrectIndex: 0,
			Category:     "pharmacology",
			Difficulty:   domain.DifficultyEasy,
		},
		{
			ID:     "q3",
			Prompt: "Organism in early prosthetic valve endocarditis?",
			Options: []domain.Option{
				{Label: "A", Text: "S. epidermidis"},
				{Label: "B", Text: "S. viridans"},
			},
			CorrectIndex: 0,
			Category:     "microbiology",
			Difficulty:   domain.DifficultyHard,
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
