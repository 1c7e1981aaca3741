package services

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/pregate/internal/models"
)

func seedLedger() *stubStore {
	store := seedScreening(0, true)
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	store.submissions = []*models.Submission{
		{ID: "s1", SurveyID: testSurveyID, SessionID: "a", ScorePercent: 100, Passed: true, SubmittedAt: at,
			Answers: map[string]models.AnswerValue{"q1": models.Single("yes")}},
		{ID: "s2", SurveyID: testSurveyID, SessionID: "b", ScorePercent: 40, Passed: false, SubmittedAt: at.Add(time.Minute),
			Answers: map[string]models.AnswerValue{"q1": models.Multiple("x", "y")}},
		{ID: "s3", SurveyID: "other", SessionID: "c", ScorePercent: 0, SubmittedAt: at},
	}
	return store
}

func TestLedgerSubmissionsNewestFirst(t *testing.T) {
	store := seedLedger()
	svc := NewLedgerService(store, store, store)
	rows, err := svc.Submissions(context.Background(), testSurveyID)
	if err != nil {
		t.Fatalf("Submissions returned error: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "s2" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if _, err := svc.Submissions(context.Background(), "missing"); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLedgerStats(t *testing.T) {
	store := seedLedger()
	svc := NewLedgerService(store, store, store)
	st, err := svc.Stats(context.Background(), testSurveyID)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if st.Total != 2 || st.Passed != 1 || st.Failed != 1 || st.PassRate != 50 || st.MeanScore != 70 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if empty := summarize("x", nil); empty.Total != 0 || empty.PassRate != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestLedgerExportCSV(t *testing.T) {
	store := seedLedger()
	svc := NewLedgerService(store, store, store)
	data, err := svc.ExportCSV(context.Background(), testSurveyID)
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records=%d, want header + 2", len(recs))
	}
	if recs[0][0] != "id" || recs[0][8] != "answers" {
		t.Fatalf("unexpected header %v", recs[0])
	}
	if recs[1][0] != "s2" || recs[1][3] != "40" || recs[1][4] != "false" || recs[1][8] != `{"q1":["x","y"]}` {
		t.Fatalf("unexpected row %v", recs[1])
	}
	if recs[2][7] != "2025-05-01T10:00:00Z" {
		t.Fatalf("unexpected timestamp %q", recs[2][7])
	}
}

func TestLedgerAudit(t *testing.T) {
	store := newStubStore()
	for i := 0; i < 3; i++ {
		_ = store.AddAudit(context.Background(), models.AuditEntry{Action: "a" + string(rune('0'+i))})
	}
	svc := NewLedgerService(store, store, store)
	out, err := svc.Audit(context.Background(), 2)
	if err != nil {
		t.Fatalf("Audit returned error: %v", err)
	}
	if len(out) != 2 || out[0].Action != "a2" {
		t.Fatalf("unexpected audit page %+v", out)
	}
}
