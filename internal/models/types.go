package models

import "time"

// ControlKind is the input control a screening question is rendered with.
type ControlKind string

const (
	ControlRadio     ControlKind = "radio"      // single choice
	ControlCheckbox  ControlKind = "checkbox"   // multiple choice
	ControlTrueFalse ControlKind = "true_false" // boolean
	ControlText      ControlKind = "text"       // free text
)

// Valid reports whether k is one of the supported control kinds.
func (k ControlKind) Valid() bool {
	switch k {
	case ControlRadio, ControlCheckbox, ControlTrueFalse, ControlText:
		return true
	}
	return false
}

// Survey is a gated external survey. Surveys are deactivated, never deleted.
type Survey struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	ActualURL           string    `json:"actual_url"`
	PassMarkPercent     int       `json:"pass_mark_percent"`
	QuestionsPerSession int       `json:"questions_per_session"` // 0 = whole pool
	InviteToken         string    `json:"invite_token"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Question is a screening question. CorrectAnswers is server-side state only.
type Question struct {
	ID             string      `json:"id"`
	Text           string      `json:"question_text"`
	ControlType    ControlKind `json:"control_type"`
	CorrectAnswers []string    `json:"correct_answers"`
	Options        []string    `json:"options,omitempty"`
	DisplayOrder   int         `json:"display_order"`
	CreatedAt      time.Time   `json:"created_at"`
}

// PublicQuestion is what an unauthenticated visitor is allowed to see.
type PublicQuestion struct {
	ID           string      `json:"id"`
	Text         string      `json:"question_text"`
	ControlType  ControlKind `json:"control_type"`
	DisplayOrder int         `json:"display_order"`
	Options      []string    `json:"options,omitempty"`
}

// Public strips the answer key.
func (q *Question) Public() PublicQuestion {
	opts := q.Options
	if len(opts) == 0 && q.ControlType == ControlTrueFalse {
		opts = []string{"True", "False"}
	}
	return PublicQuestion{
		ID:           q.ID,
		Text:         q.Text,
		ControlType:  q.ControlType,
		DisplayOrder: q.DisplayOrder,
		Options:      append([]string(nil), opts...),
	}
}

// SessionBinding records which questions were issued to a screening session.
type SessionBinding struct {
	SessionID   string    `json:"session_id"`
	SurveyID    string    `json:"survey_id"`
	QuestionIDs []string  `json:"question_ids"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Submission is an append-only ledger row for a scored attempt.
type Submission struct {
	ID           string                 `json:"id"`
	SurveyID     string                 `json:"survey_id"`
	SessionID    string                 `json:"user_session_id"`
	Answers      map[string]AnswerValue `json:"answers"`
	ScorePercent float64                `json:"score_percent"`
	Passed       bool                   `json:"passed"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	SubmittedAt  time.Time              `json:"submitted_at"`
}

// AdminUser is an operator of the admin console.
type AdminUser struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

// AuditEntry records admin actions and rejected screening attempts.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
