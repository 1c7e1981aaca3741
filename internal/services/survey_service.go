package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/models"
)

const (
	defaultPassMark   = 80
	defaultPerSession = 5
)

type CreateSurveyRequest struct {
	Name                string `json:"name" validate:"required,min=1,max=200"`
	ActualURL           string `json:"actualUrl" validate:"required,http_url"`
	PassMarkPercent     *int   `json:"passMarkPercent" validate:"omitempty,min=1,max=100"`
	QuestionsPerSession *int   `json:"questionsPerSession" validate:"omitempty,min=0,max=50"`
}

// UpdateSurveyRequest is a partial update; nil fields are left unchanged.
type UpdateSurveyRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=200"`
	ActualURL           *string `json:"actualUrl" validate:"omitempty,http_url"`
	PassMarkPercent     *int    `json:"passMarkPercent" validate:"omitempty,min=1,max=100"`
	QuestionsPerSession *int    `json:"questionsPerSession" validate:"omitempty,min=0,max=50"`
	IsActive            *bool   `json:"isActive"`
}

type SurveyService struct {
	store SurveyStore
	audit AuditLog
	log   *zap.Logger
	now   func() time.Time
	idGen func() string
}

func NewSurveyService(store SurveyStore, audit AuditLog, log *zap.Logger) *SurveyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SurveyService{
		store: store,
		audit: audit,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: newUUID,
	}
}

func (s *SurveyService) List(ctx context.Context) ([]*models.Survey, error) {
	out, err := s.store.ListSurveys(ctx)
	if err != nil {
		return nil, NewPersistenceError("failed to list surveys", err)
	}
	if out == nil {
		out = []*models.Survey{}
	}
	return out, nil
}

func (s *SurveyService) Get(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := s.store.GetSurvey(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, NewPersistenceError("failed to load survey", err)
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	return sv, nil
}

func (s *SurveyService) Create(ctx context.Context, actor string, req CreateSurveyRequest) (*models.Survey, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ActualURL = strings.TrimSpace(req.ActualURL)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	now := s.now()
	sv := &models.Survey{
		ID:                  s.idGen(),
		Name:                req.Name,
		ActualURL:           req.ActualURL,
		PassMarkPercent:     defaultPassMark,
		QuestionsPerSession: defaultPerSession,
		InviteToken:         s.idGen(),
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.PassMarkPercent != nil {
		sv.PassMarkPercent = *req.PassMarkPercent
	}
	if req.QuestionsPerSession != nil {
		sv.QuestionsPerSession = *req.QuestionsPerSession
	}
	if err := s.store.InsertSurvey(ctx, sv); err != nil {
		return nil, NewPersistenceError("failed to create survey", err)
	}
	s.record(ctx, actor, "create_survey", sv.ID, sv.Name)
	s.log.Info("survey created", zap.String("survey_id", sv.ID), zap.String("admin", actor))
	return sv, nil
}

func (s *SurveyService) Update(ctx context.Context, actor, id string, req UpdateSurveyRequest) (*models.Survey, error) {
	if req.Name != nil {
		v := strings.TrimSpace(*req.Name)
		req.Name = &v
	}
	if req.ActualURL != nil {
		v := strings.TrimSpace(*req.ActualURL)
		req.ActualURL = &v
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	sv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := sv.IsActive
	if req.Name != nil {
		sv.Name = *req.Name
	}
	if req.ActualURL != nil {
		sv.ActualURL = *req.ActualURL
	}
	if req.PassMarkPercent != nil {
		sv.PassMarkPercent = *req.PassMarkPercent
	}
	if req.QuestionsPerSession != nil {
		sv.QuestionsPerSession = *req.QuestionsPerSession
	}
	if req.IsActive != nil {
		sv.IsActive = *req.IsActive
	}
	sv.UpdatedAt = s.now()
	if err := s.store.UpdateSurvey(ctx, sv); err != nil {
		return nil, NewPersistenceError("failed to update survey", err)
	}

	action := "update_survey"
	switch {
	case wasActive && !sv.IsActive:
		action = "deactivate_survey"
	case !wasActive && sv.IsActive:
		action = "activate_survey"
	}
	s.record(ctx, actor, action, sv.ID, "pass_mark="+strconv.Itoa(sv.PassMarkPercent))
	s.log.Info("survey updated", zap.String("survey_id", sv.ID), zap.String("admin", actor), zap.String("action", action))
	return sv, nil
}

func (s *SurveyService) record(ctx context.Context, actor, action, target, note string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target, Note: note}); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
