package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"medquiz-service/internal/domain"
)

func TestGatewayRejectsMissingIdentifiers(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()

	if err := gw.CreateSession(ctx, domain.SessionRecord{}); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if err := gw.RecordAnswer(ctx, "", domain.AnsweredQuestion{}); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestGatewayResultWrittenOnce(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()

	first := domain.QuizResult{SessionID: "s1", PointsEarned: 24, CreatedAt: time.Now()}
	if err := gw.SubmitResult(ctx, first); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// A replayed submission must not mutate the stored result.
	replay := first
	replay.PointsEarned = 0
	if err := gw.SubmitResult(ctx, replay); err != nil {
		t.Fatalf("replay: %v", err)
	}

	stored, ok := gw.Result("s1")
	if !ok || stored.PointsEarned != 24 {
		t.Fatalf("expected original result retained, got %+v", stored)
	}
}

func TestGatewayStatsAccumulate(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()

	delta := domain.StatsDelta{QuizzesCompleted: 1, QuestionsAnswered: 5, CorrectAnswers: 4, PointsEarned: 19, TimeSpentSeconds: 120}
	if err := gw.UpdateUserStats(ctx, "u1", delta); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := gw.UpdateUserStats(ctx, "u1", delta); err != nil {
		t.Fatalf("update 2: %v", err)
	}

	stats := gw.Stats("u1")
	if stats.QuizzesCompleted != 2 || stats.PointsEarned != 38 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
