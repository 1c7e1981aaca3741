package services

import (
	"context"
	"time"

	"github.com/soaringjerry/pregate/internal/models"
)

// Lookups return (nil, nil) when the record does not exist.

type SurveyStore interface {
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	GetSurveyByInviteToken(ctx context.Context, token string) (*models.Survey, error)
	ListSurveys(ctx context.Context) ([]*models.Survey, error)
	InsertSurvey(ctx context.Context, sv *models.Survey) error
	UpdateSurvey(ctx context.Context, sv *models.Survey) error
}

// QuestionStore holds the global question pool. ListQuestions returns every question with
// its answer key, ordered by display order and then creation time.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]*models.Question, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	InsertQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id string) (bool, error)
}

// SubmissionLedger is append-only. ListSubmissions returns newest first.
type SubmissionLedger interface {
	AppendSubmission(ctx context.Context, sub *models.Submission) error
	ListSubmissions(ctx context.Context, surveyID string) ([]*models.Submission, error)
}

type AuditLog interface {
	AddAudit(ctx context.Context, entry models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// SessionStore keeps the questions issued to a screening session until it is submitted.
// Consume is atomic: at most one caller receives a given binding.
type SessionStore interface {
	Bind(ctx context.Context, b *models.SessionBinding, ttl time.Duration) error
	Consume(ctx context.Context, sessionID string) (*models.SessionBinding, error)
}

type AdminStore interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	AddAdmin(ctx context.Context, u *models.AdminUser) error
}
