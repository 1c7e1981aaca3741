package api

import (
	"context"

	"github.com/soaringjerry/pregate/internal/services"
)

// Store is the persistence the HTTP layer is assembled from. Session bindings live in a
// separate services.SessionStore because they expire.
type Store interface {
	services.SurveyStore
	services.QuestionStore
	services.SubmissionLedger
	services.AuditLog
	services.AdminStore

	Ping(ctx context.Context) error
}

var _ Store = (*memoryStore)(nil)
