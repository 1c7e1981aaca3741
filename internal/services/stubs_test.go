package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/soaringjerry/pregate/internal/models"
)

// stubStore is an in-memory implementation of every store interface that counts lookups.
type stubStore struct {
	mu          sync.Mutex
	surveys     map[string]*models.Survey
	questions   []*models.Question
	submissions []*models.Submission
	audit       []models.AuditEntry
	admins      map[string]*models.AdminUser

	surveyLookups   int
	questionLookups int
	appendErr       error
}

func newStubStore() *stubStore {
	return &stubStore{surveys: map[string]*models.Survey{}, admins: map[string]*models.AdminUser{}}
}

func (s *stubStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveyLookups++
	if sv, ok := s.surveys[id]; ok {
		cp := *sv
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) GetSurveyByInviteToken(_ context.Context, token string) (*models.Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveyLookups++
	for _, sv := range s.surveys {
		if sv.InviteToken == token {
			cp := *sv
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListSurveys(context.Context) ([]*models.Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Survey, 0, len(s.surveys))
	for _, sv := range s.surveys {
		cp := *sv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubStore) InsertSurvey(_ context.Context, sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sv
	s.surveys[sv.ID] = &cp
	return nil
}

func (s *stubStore) UpdateSurvey(_ context.Context, sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[sv.ID]; !ok {
		return errors.New("missing survey")
	}
	cp := *sv
	s.surveys[sv.ID] = &cp
	return nil
}

func (s *stubStore) ListQuestions(context.Context) ([]*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionLookups++
	out := make([]*models.Question, len(s.questions))
	for i, q := range s.questions {
		cp := *q
		out[i] = &cp
	}
	return out, nil
}

func (s *stubStore) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.ID == id {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) InsertQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.questions = append(s.questions, &cp)
	return nil
}

func (s *stubStore) UpdateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.questions {
		if cur.ID == q.ID {
			cp := *q
			s.questions[i] = &cp
			return nil
		}
	}
	return errors.New("missing question")
}

func (s *stubStore) DeleteQuestion(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.questions {
		if q.ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) AppendSubmission(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	cp := *sub
	s.submissions = append(s.submissions, &cp)
	return nil
}

func (s *stubStore) ListSubmissions(_ context.Context, surveyID string) ([]*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Submission
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if s.submissions[i].SurveyID == surveyID {
			out = append(out, s.submissions[i])
		}
	}
	return out, nil
}

func (s *stubStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

func (s *stubStore) FindAdminByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.admins[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) AddAdmin(_ context.Context, u *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[u.Email]; ok {
		return errors.New("duplicate admin")
	}
	cp := *u
	s.admins[u.Email] = &cp
	return nil
}

type stubSessions struct {
	bindings map[string]*models.SessionBinding
	ttl      time.Duration
	bindErr  error
}

func newStubSessions() *stubSessions {
	return &stubSessions{bindings: map[string]*models.SessionBinding{}}
}

func (s *stubSessions) Bind(_ context.Context, b *models.SessionBinding, ttl time.Duration) error {
	if s.bindErr != nil {
		return s.bindErr
	}
	cp := *b
	s.bindings[b.SessionID] = &cp
	s.ttl = ttl
	return nil
}

func (s *stubSessions) Consume(_ context.Context, id string) (*models.SessionBinding, error) {
	b, ok := s.bindings[id]
	if !ok {
		return nil, nil
	}
	delete(s.bindings, id)
	return b, nil
}
