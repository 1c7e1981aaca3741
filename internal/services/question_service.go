package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/soaringjerry/pregate/internal/models"
)

// QuestionInput is the admin payload for a new question. The yaml tags define the import file.
type QuestionInput struct {
	Text           string   `json:"questionText" yaml:"question_text" validate:"required,max=1000"`
	ControlType    string   `json:"controlType" yaml:"control_type" validate:"required,control_kind"`
	CorrectAnswers []string `json:"correctAnswers" yaml:"correct_answers" validate:"required,min=1,unique,dive,required"`
	Options        []string `json:"options" yaml:"options" validate:"omitempty,min=2,max=6,unique,dive,required"`
	DisplayOrder   *int     `json:"displayOrder" yaml:"display_order" validate:"omitempty,min=0"`
}

// QuestionPatch is a partial update. An explicit empty options list clears the options.
type QuestionPatch struct {
	Text           *string   `json:"questionText" validate:"omitempty,min=1,max=1000"`
	ControlType    *string   `json:"controlType" validate:"omitempty,control_kind"`
	CorrectAnswers *[]string `json:"correctAnswers" validate:"omitempty,min=1,unique,dive,required"`
	Options        *[]string `json:"options"`
	DisplayOrder   *int      `json:"displayOrder" validate:"omitempty,min=0"`
}

type questionFile struct {
	Questions []QuestionInput `yaml:"questions"`
}

type QuestionService struct {
	store QuestionStore
	audit AuditLog
	log   *zap.Logger
	now   func() time.Time
	idGen func() string
}

func NewQuestionService(store QuestionStore, audit AuditLog, log *zap.Logger) *QuestionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionService{
		store: store,
		audit: audit,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: newUUID,
	}
}

func (s *QuestionService) List(ctx context.Context) ([]*models.Question, error) {
	out, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, NewPersistenceError("failed to list questions", err)
	}
	if out == nil {
		out = []*models.Question{}
	}
	return out, nil
}

func (s *QuestionService) Create(ctx context.Context, actor string, in QuestionInput) (*models.Question, error) {
	q, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertQuestion(ctx, q); err != nil {
		return nil, NewPersistenceError("failed to create question", err)
	}
	s.record(ctx, actor, "create_question", q.ID, "")
	s.log.Info("question added", zap.String("question_id", q.ID), zap.String("admin", actor))
	return q, nil
}

func (s *QuestionService) build(in QuestionInput) (*models.Question, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.CorrectAnswers = trimAll(in.CorrectAnswers)
	in.Options = trimAll(in.Options)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	q := &models.Question{
		ID:             s.idGen(),
		Text:           in.Text,
		ControlType:    models.ControlKind(in.ControlType),
		CorrectAnswers: in.CorrectAnswers,
		Options:        in.Options,
		CreatedAt:      s.now(),
	}
	if in.DisplayOrder != nil {
		q.DisplayOrder = *in.DisplayOrder
	}
	if err := checkQuestionShape(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, actor, id string, p QuestionPatch) (*models.Question, error) {
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, NewPersistenceError("failed to load question", err)
	}
	if q == nil {
		return nil, NewNotFoundError("question not found")
	}
	if p.Text != nil {
		q.Text = strings.TrimSpace(*p.Text)
	}
	if p.ControlType != nil {
		q.ControlType = models.ControlKind(*p.ControlType)
	}
	if p.CorrectAnswers != nil {
		q.CorrectAnswers = trimAll(*p.CorrectAnswers)
	}
	if p.Options != nil {
		q.Options = trimAll(*p.Options)
		if n := len(q.Options); n != 0 && (n < 2 || n > 6) {
			return nil, NewInvalidError("options must have between 2 and 6 entries")
		}
	}
	if p.DisplayOrder != nil {
		q.DisplayOrder = *p.DisplayOrder
	}
	if q.Text == "" {
		return nil, NewInvalidError("questionText is required")
	}
	if err := checkQuestionShape(q); err != nil {
		return nil, err
	}
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return nil, NewPersistenceError("failed to update question", err)
	}
	s.record(ctx, actor, "update_question", q.ID, "")
	s.log.Info("question updated", zap.String("question_id", q.ID), zap.String("admin", actor))
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, actor, id string) error {
	ok, err := s.store.DeleteQuestion(ctx, id)
	if err != nil {
		return NewPersistenceError("failed to delete question", err)
	}
	if !ok {
		return NewNotFoundError("question not found")
	}
	s.record(ctx, actor, "delete_question", id, "")
	s.log.Info("question deleted", zap.String("question_id", id), zap.String("admin", actor))
	return nil
}

// ImportYAML validates every question in the document before inserting any of them.
func (s *QuestionService) ImportYAML(ctx context.Context, actor string, data []byte) (int, error) {
	var doc questionFile
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return 0, NewInvalidError("invalid question file: " + err.Error())
	}
	if len(doc.Questions) == 0 {
		return 0, NewInvalidError("question file has no questions")
	}
	built := make([]*models.Question, 0, len(doc.Questions))
	for i, in := range doc.Questions {
		q, err := s.build(in)
		if err != nil {
			if se, ok := AsServiceError(err); ok {
				return 0, NewInvalidError(fmt.Sprintf("question %d: %s", i+1, se.Message), se.Details...)
			}
			return 0, err
		}
		built = append(built, q)
	}
	for _, q := range built {
		if err := s.store.InsertQuestion(ctx, q); err != nil {
			return 0, NewPersistenceError("failed to import questions", err)
		}
	}
	s.record(ctx, actor, "import_questions", "pool", strconv.Itoa(len(built)))
	s.log.Info("questions imported", zap.Int("count", len(built)), zap.String("admin", actor))
	return len(built), nil
}

// checkQuestionShape enforces the rules that span fields: choice questions need options that
// contain every correct answer, and single-answer controls take exactly one correct answer.
func checkQuestionShape(q *models.Question) error {
	if !q.ControlType.Valid() {
		return NewInvalidError("controlType must be one of radio, checkbox, true_false, text")
	}
	if len(q.CorrectAnswers) == 0 {
		return NewInvalidError("correctAnswers is required")
	}
	seen := map[string]struct{}{}
	for _, a := range q.CorrectAnswers {
		if a == "" {
			return NewInvalidError("correctAnswers must not contain blanks")
		}
		if _, dup := seen[a]; dup {
			return NewInvalidError("correctAnswers must not contain duplicates")
		}
		seen[a] = struct{}{}
	}

	switch q.ControlType {
	case models.ControlRadio, models.ControlTrueFalse:
		if len(q.CorrectAnswers) != 1 {
			return NewInvalidError("correctAnswers must have exactly one entry for " + string(q.ControlType))
		}
	}
	switch q.ControlType {
	case models.ControlRadio, models.ControlCheckbox:
		if len(q.Options) == 0 {
			return NewInvalidError("options are required for " + string(q.ControlType))
		}
	case models.ControlText:
		q.Options = nil
		return nil
	}

	options := q.Public().Options
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o] = struct{}{}
	}
	for _, a := range q.CorrectAnswers {
		if _, ok := allowed[a]; !ok {
			return NewInvalidError("correct answer " + strconv.Quote(a) + " is not an option")
		}
	}
	return nil
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func (s *QuestionService) record(ctx context.Context, actor, action, target, note string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target, Note: note}); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
