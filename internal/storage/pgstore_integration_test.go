package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"interview-tracker/internal/model"

	"github.com/google/uuid"
)

func TestPGStoreIntegration(t *testing.T) {
	url := os.Getenv("INTERVIEWS_TEST_PG_URL")
	if url == "" {
		t.Skip("INTERVIEWS_TEST_PG_URL must be set to run this test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewPGStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPGStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	owner := "it-" + uuid.NewString()
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := model.Interview{
		ID: uuid.NewString(), OwnerID: owner, CreatedAt: date,
		Company: "Acme", VacancyLink: "https://x", HRName: "Jo",
		SalaryFrom: intPtr(10),
		Stages:     []model.InterviewStage{{Name: "HR", Date: &date}, {Name: "Tech"}},
	}
	if err := store.CreateInterview(ctx, &rec); err != nil {
		t.Fatalf("CreateInterview: %v", err)
	}

	got, err := store.GetInterview(ctx, owner, rec.ID)
	if err != nil {
		t.Fatalf("GetInterview: %v", err)
	}
	if len(got.Stages) != 2 || got.Stages[1].Name != "Tech" || got.Result != model.ResultInProgress {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Result = model.ResultOffer
	if err := store.UpdateInterview(ctx, got); err != nil {
		t.Fatalf("UpdateInterview: %v", err)
	}
	offer := model.ResultOffer
	n, err := store.CountInterviews(ctx, owner, InterviewQuery{Result: &offer})
	if err != nil || n != 1 {
		t.Fatalf("CountInterviews = %d, %v", n, err)
	}

	if err := store.DeleteInterview(ctx, owner, rec.ID); err != nil {
		t.Fatalf("DeleteInterview: %v", err)
	}
	if err := store.DeleteInterview(ctx, owner, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
