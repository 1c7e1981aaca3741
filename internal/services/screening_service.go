package services

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/models"
)

// IssueRequest asks for a fresh set of questions for an invite link.
type IssueRequest struct {
	InviteToken string `json:"inviteToken"`
	SessionID   string `json:"sessionId" validate:"omitempty,max=128"`
}

// IssuedSession is the public payload of an issued screening session.
type IssuedSession struct {
	SurveyID  string                  `json:"surveyId"`
	SessionID string                  `json:"sessionId"`
	Name      string                  `json:"name"`
	IssuedAt  time.Time               `json:"issuedAt"`
	Questions []models.PublicQuestion `json:"questions"`
}

// ScreeningService issues question sets for active surveys and records what was issued.
type ScreeningService struct {
	surveys    SurveyStore
	questions  QuestionStore
	sessions   SessionStore
	log        *zap.Logger
	sessionTTL time.Duration
	now        func() time.Time
	idGen      func() string
	shuffle    func(n int, swap func(i, j int))
}

func NewScreeningService(surveys SurveyStore, questions QuestionStore, sessions SessionStore, sessionTTL time.Duration, log *zap.Logger) *ScreeningService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScreeningService{
		surveys:    surveys,
		questions:  questions,
		sessions:   sessions,
		log:        log,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
		idGen:      newUUID,
		shuffle:    rand.Shuffle,
	}
}

// Issue resolves an invite token and draws the questions for one attempt. Every call draws
// anew and replaces any earlier binding for the same session id.
func (s *ScreeningService) Issue(ctx context.Context, req IssueRequest) (*IssuedSession, error) {
	token := strings.TrimSpace(req.InviteToken)
	if token == "" {
		return nil, ErrSurveyNotFound
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	survey, err := s.surveys.GetSurveyByInviteToken(ctx, token)
	if err != nil {
		return nil, NewPersistenceError("failed to load survey", err)
	}
	if survey == nil || !survey.IsActive {
		return nil, ErrSurveyNotFound
	}

	pool, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, NewPersistenceError("failed to load questions", err)
	}
	picked := s.sample(pool, survey.QuestionsPerSession)
	if len(picked) == 0 {
		s.log.Warn("invite for a survey without questions", zap.String("survey_id", survey.ID))
		return nil, ErrSurveyNotFound
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.idGen()
	}
	issuedAt := s.now()

	ids := make([]string, len(picked))
	public := make([]models.PublicQuestion, len(picked))
	for i, q := range picked {
		ids[i] = q.ID
		public[i] = q.Public()
	}

	if s.sessions != nil {
		binding := &models.SessionBinding{SessionID: sessionID, SurveyID: survey.ID, QuestionIDs: ids, IssuedAt: issuedAt}
		if err := s.sessions.Bind(ctx, binding, s.sessionTTL); err != nil {
			s.log.Error("session binding not stored",
				zap.String("survey_id", survey.ID),
				zap.String("session_id", sessionID),
				zap.Error(err))
			return nil, NewPersistenceError("failed to store screening session", err)
		}
	}

	s.log.Debug("screening session issued",
		zap.String("survey_id", survey.ID),
		zap.String("session_id", sessionID),
		zap.Int("questions", len(public)))

	return &IssuedSession{
		SurveyID:  survey.ID,
		SessionID: sessionID,
		Name:      survey.Name,
		IssuedAt:  issuedAt,
		Questions: public,
	}, nil
}

// sample draws n questions without replacement, in draw order. n == 0 means the whole pool
// ordered by display order.
func (s *ScreeningService) sample(pool []*models.Question, n int) []*models.Question {
	out := append([]*models.Question(nil), pool...)
	if n <= 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
		return out
	}
	s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}
