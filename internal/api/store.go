package api

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/soaringjerry/pregate/internal/models"
)

// memoryStore backs development runs and tests when no SQLite path is configured.
// Records are copied on the way in and out so callers never share state with the store.
type memoryStore struct {
	mu          sync.RWMutex
	surveys     map[string]*models.Survey
	byInvite    map[string]string
	questions   map[string]*models.Question
	submissions []*models.Submission
	audit       []models.AuditEntry
	admins      map[string]*models.AdminUser
}

func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		surveys:   map[string]*models.Survey{},
		byInvite:  map[string]string{},
		questions: map[string]*models.Question{},
		admins:    map[string]*models.AdminUser{},
	}
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func copySurvey(sv *models.Survey) *models.Survey {
	c := *sv
	return &c
}

func copyQuestion(q *models.Question) *models.Question {
	c := *q
	c.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	return &c
}

func copySubmission(sub *models.Submission) *models.Submission {
	c := *sub
	c.Answers = make(map[string]models.AnswerValue, len(sub.Answers))
	for k, v := range sub.Answers {
		c.Answers[k] = v
	}
	return &c
}

// ---- surveys ----

func (s *memoryStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sv, ok := s.surveys[id]; ok {
		return copySurvey(sv), nil
	}
	return nil, nil
}

func (s *memoryStore) GetSurveyByInviteToken(_ context.Context, token string) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byInvite[token]; ok {
		return copySurvey(s.surveys[id]), nil
	}
	return nil, nil
}

func (s *memoryStore) ListSurveys(context.Context) ([]*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Survey, 0, len(s.surveys))
	for _, sv := range s.surveys {
		out = append(out, copySurvey(sv))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) InsertSurvey(_ context.Context, sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveys[sv.ID] = copySurvey(sv)
	s.byInvite[sv.InviteToken] = sv.ID
	return nil
}

func (s *memoryStore) UpdateSurvey(_ context.Context, sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.surveys[sv.ID]
	if !ok {
		return nil
	}
	if old.InviteToken != sv.InviteToken {
		delete(s.byInvite, old.InviteToken)
		s.byInvite[sv.InviteToken] = sv.ID
	}
	s.surveys[sv.ID] = copySurvey(sv)
	return nil
}

// ---- questions ----

func (s *memoryStore) ListQuestions(context.Context) ([]*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, copyQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		return copyQuestion(q), nil
	}
	return nil, nil
}

func (s *memoryStore) InsertQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *memoryStore) UpdateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		s.questions[q.ID] = copyQuestion(q)
	}
	return nil
}

func (s *memoryStore) DeleteQuestion(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return false, nil
	}
	delete(s.questions, id)
	return true, nil
}

// ---- ledger ----

func (s *memoryStore) AppendSubmission(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, copySubmission(sub))
	return nil
}

func (s *memoryStore) ListSubmissions(_ context.Context, surveyID string) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Submission, 0)
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if s.submissions[i].SurveyID == surveyID {
			out = append(out, copySubmission(s.submissions[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

// ---- audit ----

func (s *memoryStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns the newest entries first.
func (s *memoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.audit)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.AuditEntry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

// ---- admins ----

func (s *memoryStore) FindAdminByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.admins[strings.ToLower(email)]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (s *memoryStore) AddAdmin(_ context.Context, u *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.admins[strings.ToLower(u.Email)] = &c
	return nil
}
