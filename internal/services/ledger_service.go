package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/soaringjerry/pregate/internal/models"
)

const defaultAuditLimit = 200

// SurveyStats summarises the ledger of one survey.
type SurveyStats struct {
	SurveyID  string  `json:"survey_id"`
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	PassRate  float64 `json:"pass_rate"`
	MeanScore float64 `json:"mean_score"`
}

// LedgerService is the read side of the submission ledger and the audit log.
type LedgerService struct {
	surveys SurveyStore
	ledger  SubmissionLedger
	audit   AuditLog
}

func NewLedgerService(surveys SurveyStore, ledger SubmissionLedger, audit AuditLog) *LedgerService {
	return &LedgerService{surveys: surveys, ledger: ledger, audit: audit}
}

// Submissions lists the ledger rows of a survey, newest first.
func (s *LedgerService) Submissions(ctx context.Context, surveyID string) ([]*models.Submission, error) {
	sv, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, NewPersistenceError("failed to load survey", err)
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	rows, err := s.ledger.ListSubmissions(ctx, sv.ID)
	if err != nil {
		return nil, NewPersistenceError("failed to list submissions", err)
	}
	if rows == nil {
		rows = []*models.Submission{}
	}
	return rows, nil
}

func (s *LedgerService) Stats(ctx context.Context, surveyID string) (*SurveyStats, error) {
	rows, err := s.Submissions(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return summarize(surveyID, rows), nil
}

func summarize(surveyID string, rows []*models.Submission) *SurveyStats {
	st := &SurveyStats{SurveyID: surveyID, Total: len(rows)}
	if len(rows) == 0 {
		return st
	}
	var sum float64
	for _, r := range rows {
		if r.Passed {
			st.Passed++
		}
		sum += r.ScorePercent
	}
	st.Failed = st.Total - st.Passed
	st.PassRate = float64(st.Passed) / float64(st.Total) * 100
	st.MeanScore = sum / float64(st.Total)
	return st
}

// ExportCSV renders the ledger of a survey, one submission per row, answers as JSON.
func (s *LedgerService) ExportCSV(ctx context.Context, surveyID string) ([]byte, error) {
	rows, err := s.Submissions(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return ExportSubmissionsCSV(rows)
}

func ExportSubmissionsCSV(rows []*models.Submission) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "survey_id", "user_session_id", "score_percent", "passed", "ip_address", "user_agent", "submitted_at", "answers"})
	for _, r := range rows {
		answers, err := json.Marshal(r.Answers)
		if err != nil {
			return nil, err
		}
		rec := []string{
			r.ID,
			r.SurveyID,
			r.SessionID,
			strconv.FormatFloat(r.ScorePercent, 'f', -1, 64),
			strconv.FormatBool(r.Passed),
			r.IPAddress,
			r.UserAgent,
			r.SubmittedAt.UTC().Format(time.RFC3339),
			string(answers),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Audit returns the newest audit entries. limit <= 0 uses the default page size.
func (s *LedgerService) Audit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditLimit
	}
	out, err := s.audit.ListAudit(ctx, limit)
	if err != nil {
		return nil, NewPersistenceError("failed to list audit log", err)
	}
	if out == nil {
		out = []models.AuditEntry{}
	}
	return out, nil
}
