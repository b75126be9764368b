package memory

import (
	"context"
	"testing"
	"time"

	"medquiz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleBank()),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	filter := domain.QuestionFilter{Count: 2}
	if _, err := repo.FetchQuestions(context.Background(), filter); err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.FetchQuestions(context.Background(), filter); err != nil {
		t.Fatalf("fetch questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositorySamplesRequestedCount(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(sampleBank()), time.Minute)

	got, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{Count: 2})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s in sample", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestStaticLoaderFilters(t *testing.T) {
	loader := NewStaticQuestionLoader(sampleBank())

	pool, err := loader.LoadQuestions(context.Background(), domain.QuestionFilter{Category: "cardiology"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != "q1" {
		t.Fatalf("expected only the cardiology question, got %+v", pool)
	}

	pool, err = loader.LoadQuestions(context.Background(), domain.QuestionFilter{Difficulty: domain.DifficultyHard})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != "q3" {
		t.Fatalf("expected only the hard question, got %+v", pool)
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
