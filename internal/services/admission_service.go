package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/models"
)

const (
	RejectHoneypot = "bot_honeypot"
	RejectTooFast  = "bot_too_fast"
)

// SubmitRequest is a completed screening attempt.
type SubmitRequest struct {
	SurveyID  string                        `json:"surveyId" validate:"required,uuid"`
	SessionID string                        `json:"sessionId" validate:"required,min=1,max=128"`
	Answers   map[string]models.AnswerValue `json:"answers"`
	StartedAt time.Time                     `json:"startedAt" validate:"required"`
	Honeypot  string                        `json:"honeypot,omitempty"`
	IP        string                        `json:"-"`
	UserAgent string                        `json:"-"`
}

// Decision is the admission outcome. Only Passed and RedirectURL are ever sent to a client,
// so a failed score and a bot rejection look the same from outside.
type Decision struct {
	Passed       bool    `json:"passed"`
	RedirectURL  string  `json:"redirectUrl,omitempty"`
	ScorePercent float64 `json:"-"`
	SubmissionID string  `json:"-"`
	Rejection    string  `json:"-"`
}

// BotRejection is returned by Screen; errors.Is(err, ErrBotDetected) holds for it.
type BotRejection struct {
	Reason string
}

func (e *BotRejection) Error() string        { return ErrBotDetected.Error() + ": " + e.Reason }
func (e *BotRejection) Is(target error) bool { return target == ErrBotDetected }

type AdmissionDeps struct {
	Surveys   SurveyStore
	Questions QuestionStore
	Ledger    SubmissionLedger
	Sessions  SessionStore
	Audit     AuditLog

	// SessionTTL is the lifetime bindings were issued with. A binding put back after a failed
	// ledger write keeps only what is left of it.
	SessionTTL time.Duration
}

// AdmissionService scores submissions and decides whether the visitor may continue to the survey.
type AdmissionService struct {
	surveys    SurveyStore
	questions  QuestionStore
	ledger     SubmissionLedger
	sessions   SessionStore
	audit      AuditLog
	log        *zap.Logger
	minElapsed time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	idGen      func() string
}

func NewAdmissionService(deps AdmissionDeps, minElapsed time.Duration, log *zap.Logger) *AdmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	if minElapsed < 0 {
		minElapsed = 0
	}
	return &AdmissionService{
		surveys:    deps.Surveys,
		questions:  deps.Questions,
		ledger:     deps.Ledger,
		sessions:   deps.Sessions,
		audit:      deps.Audit,
		log:        log,
		minElapsed: minElapsed,
		sessionTTL: deps.SessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
		idGen:      newUUID,
	}
}

// Screen applies the bot heuristics. It touches no store.
func (s *AdmissionService) Screen(req SubmitRequest, now time.Time) error {
	if req.Honeypot != "" {
		return &BotRejection{Reason: RejectHoneypot}
	}
	if !s.elapsedOK(req.StartedAt, now) {
		return &BotRejection{Reason: RejectTooFast}
	}
	return nil
}

func (s *AdmissionService) elapsedOK(start, now time.Time) bool {
	if start.IsZero() {
		return false
	}
	elapsed := now.Sub(start)
	return elapsed > 0 && elapsed >= s.minElapsed
}

// Evaluate runs the full admission decision for one submission.
func (s *AdmissionService) Evaluate(ctx context.Context, req SubmitRequest) (*Decision, error) {
	req.SurveyID = strings.TrimSpace(req.SurveyID)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	for id := range req.Answers {
		if strings.TrimSpace(id) == "" {
			return nil, NewInvalidError("answers keys must be question ids")
		}
	}

	now := s.now()
	var bot *BotRejection
	if err := s.Screen(req, now); errors.As(err, &bot) {
		return s.reject(ctx, req, bot.Reason), nil
	}

	survey, err := s.surveys.GetSurvey(ctx, req.SurveyID)
	if err != nil {
		return nil, NewPersistenceError("failed to load survey", err)
	}
	if survey == nil || !survey.IsActive {
		return nil, ErrSurveyNotFound
	}

	binding := s.consumeBinding(ctx, req.SessionID)
	if binding != nil && binding.SurveyID != survey.ID {
		binding = nil
	}
	if binding != nil && binding.IssuedAt.After(req.StartedAt) && !s.elapsedOK(binding.IssuedAt, now) {
		return s.reject(ctx, req, RejectTooFast), nil
	}

	pool, err := s.questions.ListQuestions(ctx)
	if err != nil {
		s.restoreBinding(ctx, binding, now)
		return nil, NewPersistenceError("failed to load questions", err)
	}
	if len(pool) == 0 {
		s.log.Warn("submission for a survey without questions",
			zap.String("survey_id", survey.ID),
			zap.String("session_id", req.SessionID))
		return nil, ErrSurveyNotFound
	}
	questions := restrictToIssued(pool, binding)
	total := len(questions)
	if total == 0 {
		questions, total = answeredQuestions(pool, req.Answers, survey.QuestionsPerSession)
	}

	correct, _ := Score(questions, req.Answers)
	percent := Percent(correct, total)
	passed := PassesMark(correct, total, survey.PassMarkPercent)

	answers := make(map[string]models.AnswerValue, len(req.Answers))
	for k, v := range req.Answers {
		answers[k] = v
	}
	sub := &models.Submission{
		ID:           s.idGen(),
		SurveyID:     survey.ID,
		SessionID:    req.SessionID,
		Answers:      answers,
		ScorePercent: percent,
		Passed:       passed,
		IPAddress:    req.IP,
		UserAgent:    req.UserAgent,
		SubmittedAt:  now,
	}
	if err := s.ledger.AppendSubmission(ctx, sub); err != nil {
		s.log.Error("failed to record submission",
			zap.String("survey_id", survey.ID),
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		s.restoreBinding(ctx, binding, now)
		return nil, NewPersistenceError("failed to record submission", err)
	}

	s.log.Info("submission scored",
		zap.String("survey_id", survey.ID),
		zap.String("session_id", req.SessionID),
		zap.Int("correct", correct),
		zap.Int("total", total),
		zap.Float64("score_percent", percent),
		zap.Bool("passed", passed),
		zap.Bool("bound", binding != nil))

	d := &Decision{Passed: passed, ScorePercent: percent, SubmissionID: sub.ID}
	if passed {
		d.RedirectURL = survey.ActualURL
	}
	return d, nil
}

func (s *AdmissionService) consumeBinding(ctx context.Context, sessionID string) *models.SessionBinding {
	if s.sessions == nil {
		return nil
	}
	b, err := s.sessions.Consume(ctx, sessionID)
	if err != nil {
		s.log.Warn("session binding unavailable, scoring the answered questions",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return b
}

// restoreBinding puts a consumed binding back so the visitor can resubmit after a failed
// ledger write.
func (s *AdmissionService) restoreBinding(ctx context.Context, b *models.SessionBinding, now time.Time) {
	if b == nil || s.sessions == nil {
		return
	}
	ttl := s.sessionTTL
	if ttl > 0 {
		ttl = b.IssuedAt.Add(ttl).Sub(now)
		if ttl <= 0 {
			return
		}
	}
	if err := s.sessions.Bind(ctx, b, ttl); err != nil {
		s.log.Warn("session binding not restored",
			zap.String("session_id", b.SessionID),
			zap.Error(err))
	}
}

// restrictToIssued keeps the pool questions that were issued, in issue order. Ids that no
// longer exist in the pool are skipped. Without a binding nothing is returned.
func restrictToIssued(pool []*models.Question, b *models.SessionBinding) []*models.Question {
	if b == nil || len(b.QuestionIDs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	out := make([]*models.Question, 0, len(b.QuestionIDs))
	for _, id := range b.QuestionIDs {
		if q, ok := byID[id]; ok {
			out = append(out, q)
			delete(byID, id)
		}
	}
	return out
}

func (s *AdmissionService) reject(ctx context.Context, req SubmitRequest, reason string) *Decision {
	s.log.Warn("submission rejected by bot screening",
		zap.String("reason", reason),
		zap.String("survey_id", req.SurveyID),
		zap.String("session_id", req.SessionID),
		zap.String("ip", req.IP))
	if s.audit != nil {
		entry := models.AuditEntry{
			Time:   s.now(),
			Actor:  req.IP,
			Action: reason,
			Target: req.SurveyID,
			Note:   "session=" + req.SessionID,
		}
		if err := s.audit.AddAudit(ctx, entry); err != nil {
			s.log.Warn("audit write failed", zap.String("action", reason), zap.Error(err))
		}
	}
	return &Decision{Passed: false, Rejection: reason}
}

// answeredQuestions is the scored set when no binding is usable: the pool questions the
// visitor answered. The total is never less than one session's worth, so skipping questions
// cannot raise the score.
func answeredQuestions(pool []*models.Question, answers map[string]models.AnswerValue, perSession int) ([]*models.Question, int) {
	want := len(pool)
	if perSession > 0 && perSession < want {
		want = perSession
	}
	out := make([]*models.Question, 0, want)
	for _, q := range pool {
		if _, ok := answers[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out, max(want, len(out))
}
