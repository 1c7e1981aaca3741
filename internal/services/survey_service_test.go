package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func newTestSurveys(store *stubStore) *SurveyService {
	svc := NewSurveyService(store, store, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	n := 0
	svc.idGen = func() string {
		n++
		return []string{"survey-id", "invite-token"}[(n-1)%2]
	}
	return svc
}

func TestCreateSurveyDefaults(t *testing.T) {
	store := newStubStore()
	svc := newTestSurveys(store)

	sv, err := svc.Create(context.Background(), "admin@example.com", CreateSurveyRequest{
		Name:      " Panel ",
		ActualURL: "https://survey.example.com/x",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if sv.ID != "survey-id" || sv.InviteToken != "invite-token" {
		t.Fatalf("unexpected ids %+v", sv)
	}
	if sv.Name != "Panel" || sv.PassMarkPercent != 80 || sv.QuestionsPerSession != 5 || !sv.IsActive {
		t.Fatalf("unexpected defaults %+v", sv)
	}
	if len(store.audit) != 1 || store.audit[0].Action != "create_survey" {
		t.Fatalf("audit=%+v", store.audit)
	}
}

func TestCreateSurveyValidation(t *testing.T) {
	svc := newTestSurveys(newStubStore())
	cases := []CreateSurveyRequest{
		{Name: "", ActualURL: "https://x.example"},
		{Name: "ok", ActualURL: "not a url"},
		{Name: "ok", ActualURL: "ftp://x.example"},
		{Name: "ok", ActualURL: "https://x.example", PassMarkPercent: intPtr(0)},
		{Name: "ok", ActualURL: "https://x.example", PassMarkPercent: intPtr(101)},
		{Name: "ok", ActualURL: "https://x.example", QuestionsPerSession: intPtr(51)},
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), "a", req)
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorInvalid || len(se.Details) == 0 {
			t.Fatalf("case %d: expected invalid error with details, got %v", i, err)
		}
	}

	sv, err := svc.Create(context.Background(), "a", CreateSurveyRequest{Name: "ok", ActualURL: "https://x.example", QuestionsPerSession: intPtr(0)})
	if err != nil || sv.QuestionsPerSession != 0 {
		t.Fatalf("whole-pool survey should be allowed: %+v %v", sv, err)
	}
}

func TestUpdateSurvey(t *testing.T) {
	store := newStubStore()
	svc := newTestSurveys(store)
	ctx := context.Background()
	sv, err := svc.Create(ctx, "a", CreateSurveyRequest{Name: "Panel", ActualURL: "https://x.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, "a", sv.ID, UpdateSurveyRequest{PassMarkPercent: intPtr(60), IsActive: boolPtr(false)})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.PassMarkPercent != 60 || updated.IsActive || updated.Name != "Panel" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if last := store.audit[len(store.audit)-1]; last.Action != "deactivate_survey" {
		t.Fatalf("expected deactivate audit, got %+v", last)
	}

	if _, err := svc.Update(ctx, "a", sv.ID, UpdateSurveyRequest{Name: strPtr(" ")}); err == nil {
		t.Fatalf("blank name must be rejected")
	}
	if _, err := svc.Update(ctx, "a", "missing", UpdateSurveyRequest{}); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
