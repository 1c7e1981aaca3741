package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soaringjerry/pregate/internal/models"
)

const (
	testSurveyID = "6f1f7c2e-6d4b-4e47-9c55-2f0c7b1d9a10"
	testInvite   = "invite-123"
)

func seedScreening(perSession int, active bool) *stubStore {
	store := newStubStore()
	store.surveys[testSurveyID] = &models.Survey{
		ID:                  testSurveyID,
		Name:                "Panel",
		ActualURL:           "https://survey.example.com/s/1",
		PassMarkPercent:     80,
		QuestionsPerSession: perSession,
		InviteToken:         testInvite,
		IsActive:            active,
	}
	for i, id := range []string{"q1", "q2", "q3", "q4", "q5"} {
		store.questions = append(store.questions, &models.Question{
			ID:             id,
			Text:           "Question " + id,
			ControlType:    models.ControlRadio,
			CorrectAnswers: []string{"yes"},
			Options:        []string{"yes", "no"},
			DisplayOrder:   5 - i,
		})
	}
	return store
}

func newTestScreening(store *stubStore, sessions SessionStore) *ScreeningService {
	svc := NewScreeningService(store, store, sessions, time.Hour, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	svc.idGen = func() string { return "generated-session" }
	svc.shuffle = func(n int, swap func(i, j int)) {}
	return svc
}

func TestIssueWholePoolByDisplayOrder(t *testing.T) {
	store := seedScreening(0, true)
	sessions := newStubSessions()
	svc := newTestScreening(store, sessions)

	res, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(res.Questions) != 5 {
		t.Fatalf("questions=%d, want 5", len(res.Questions))
	}
	if res.Questions[0].ID != "q5" || res.Questions[4].ID != "q1" {
		t.Fatalf("unexpected order: %s..%s", res.Questions[0].ID, res.Questions[4].ID)
	}
	if res.SessionID != "generated-session" || res.SurveyID != testSurveyID || res.Name != "Panel" {
		t.Fatalf("unexpected session payload %+v", res)
	}
	b := sessions.bindings["generated-session"]
	if b == nil || len(b.QuestionIDs) != 5 || b.SurveyID != testSurveyID {
		t.Fatalf("binding not recorded: %+v", b)
	}
	if sessions.ttl != time.Hour {
		t.Fatalf("binding ttl=%s, want 1h", sessions.ttl)
	}
}

func TestIssueSamplesSubsetInDrawOrder(t *testing.T) {
	store := seedScreening(2, true)
	sessions := newStubSessions()
	svc := newTestScreening(store, sessions)
	svc.shuffle = func(n int, swap func(i, j int)) { swap(0, n-1) }

	res, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite, SessionID: " client-1 "})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(res.Questions) != 2 || res.Questions[0].ID != "q5" || res.Questions[1].ID != "q2" {
		t.Fatalf("unexpected sample %+v", res.Questions)
	}
	if res.SessionID != "client-1" {
		t.Fatalf("session id=%q, want client-1", res.SessionID)
	}
	if got := sessions.bindings["client-1"].QuestionIDs; len(got) != 2 || got[0] != "q5" {
		t.Fatalf("binding ids=%v", got)
	}
}

func TestIssueSampleLargerThanPool(t *testing.T) {
	store := seedScreening(50, true)
	svc := newTestScreening(store, newStubSessions())
	res, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(res.Questions) != 5 {
		t.Fatalf("questions=%d, want whole pool", len(res.Questions))
	}
}

func TestIssueNotFound(t *testing.T) {
	cases := []struct {
		name  string
		store *stubStore
		token string
	}{
		{"inactive", seedScreening(0, false), testInvite},
		{"unknown", seedScreening(0, true), "nope"},
		{"blank", seedScreening(0, true), "  "},
	}
	for _, c := range cases {
		svc := newTestScreening(c.store, newStubSessions())
		res, err := svc.Issue(context.Background(), IssueRequest{InviteToken: c.token})
		if res != nil {
			t.Fatalf("%s: expected no questions, got %+v", c.name, res)
		}
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorNotFound || se.Message != "survey not found" {
			t.Fatalf("%s: expected survey not found, got %v", c.name, err)
		}
	}
}

func TestIssueEmptyPool(t *testing.T) {
	store := seedScreening(0, true)
	store.questions = nil
	svc := newTestScreening(store, newStubSessions())
	_, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite})
	if !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("expected survey not found, got %v", err)
	}
}

func TestIssueFailsWhenBindingNotStored(t *testing.T) {
	store := seedScreening(2, true)
	sessions := newStubSessions()
	sessions.bindErr = errors.New("redis down")
	svc := newTestScreening(store, sessions)

	issued, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite})
	if issued != nil {
		t.Fatalf("no questions may be handed out without a binding, got %+v", issued)
	}
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorPersistence || !errors.Is(err, sessions.bindErr) {
		t.Fatalf("expected persistence error wrapping the cause, got %v", err)
	}
}

func TestIssueRejectsLongSessionID(t *testing.T) {
	store := seedScreening(0, true)
	svc := newTestScreening(store, newStubSessions())
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite, SessionID: string(long)})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestIssueTrueFalseDefaultsOptions(t *testing.T) {
	store := seedScreening(0, true)
	store.questions = []*models.Question{{ID: "tf", ControlType: models.ControlTrueFalse, CorrectAnswers: []string{"True"}}}
	svc := newTestScreening(store, newStubSessions())
	res, err := svc.Issue(context.Background(), IssueRequest{InviteToken: testInvite})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if opts := res.Questions[0].Options; len(opts) != 2 || opts[0] != "True" {
		t.Fatalf("options=%v", opts)
	}
}
