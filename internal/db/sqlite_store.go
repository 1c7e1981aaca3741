package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/models"
)

// SQLiteStore persists surveys, the question pool, the submission ledger, the audit log and
// admin accounts in one SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating the directory when needed) the database file at path.
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func NewSQLiteStore(db *sql.DB, log *zap.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if log == nil {
		log = zap.NewNop()
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		s.log.Warn("sqlite store", zap.String("op", prefix), zap.Error(err))
	}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (s *SQLiteStore) decodeStrings(op string, ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		s.logErr(op, err)
		return nil
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ---- surveys ----

const surveyColumns = `id, name, actual_url, pass_mark_percent, questions_per_session, invite_token, is_active, created_at, updated_at`

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var (
		sv     models.Survey
		active int64
	)
	if err := row.Scan(&sv.ID, &sv.Name, &sv.ActualURL, &sv.PassMarkPercent, &sv.QuestionsPerSession,
		&sv.InviteToken, &active, &sv.CreatedAt, &sv.UpdatedAt); err != nil {
		return nil, err
	}
	sv.IsActive = active != 0
	sv.CreatedAt = sv.CreatedAt.UTC()
	sv.UpdatedAt = sv.UpdatedAt.UTC()
	return &sv, nil
}

func (s *SQLiteStore) getSurveyWhere(ctx context.Context, column, value string) (*models.Survey, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+surveyColumns+" FROM surveys WHERE "+column+" = ?", value)
	sv, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sv, err
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	return s.getSurveyWhere(ctx, "id", id)
}

func (s *SQLiteStore) GetSurveyByInviteToken(ctx context.Context, token string) (*models.Survey, error) {
	return s.getSurveyWhere(ctx, "invite_token", token)
}

func (s *SQLiteStore) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+surveyColumns+" FROM surveys ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertSurvey(ctx context.Context, sv *models.Survey) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO surveys (`+surveyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.Name, sv.ActualURL, sv.PassMarkPercent, sv.QuestionsPerSession, sv.InviteToken,
		boolToInt64(sv.IsActive), sv.CreatedAt.UTC(), sv.UpdatedAt.UTC())
	return err
}

func (s *SQLiteStore) UpdateSurvey(ctx context.Context, sv *models.Survey) error {
	res, err := s.db.ExecContext(ctx, `UPDATE surveys SET name = ?, actual_url = ?, pass_mark_percent = ?,
		questions_per_session = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		sv.Name, sv.ActualURL, sv.PassMarkPercent, sv.QuestionsPerSession, boolToInt64(sv.IsActive), sv.UpdatedAt.UTC(), sv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("survey %s not found", sv.ID)
	}
	return nil
}

// ---- questions ----

const questionColumns = `id, question_text, control_type, correct_answers, options, display_order, created_at`

func (s *SQLiteStore) scanQuestion(row rowScanner) (*models.Question, error) {
	var (
		q        models.Question
		kind     string
		answers  sql.NullString
		options  sql.NullString
		position int64
	)
	if err := row.Scan(&q.ID, &q.Text, &kind, &answers, &options, &position, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.ControlType = models.ControlKind(kind)
	q.CorrectAnswers = s.decodeStrings("decode correct_answers", answers)
	q.Options = s.decodeStrings("decode options", options)
	q.DisplayOrder = int(position)
	q.CreatedAt = q.CreatedAt.UTC()
	return &q, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+questionColumns+" FROM questions ORDER BY display_order, created_at, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Question
	for rows.Next() {
		q, err := s.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	q, err := s.scanQuestion(s.db.QueryRowContext(ctx, "SELECT "+questionColumns+" FROM questions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func questionJSON(q *models.Question) (answers, options sql.NullString, err error) {
	if answers, err = encodeJSON(q.CorrectAnswers); err != nil {
		return
	}
	if len(q.Options) > 0 {
		options, err = encodeJSON(q.Options)
	}
	return
}

func (s *SQLiteStore) InsertQuestion(ctx context.Context, q *models.Question) error {
	answers, options, err := questionJSON(q)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Text, string(q.ControlType), answers, options, q.DisplayOrder, q.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) UpdateQuestion(ctx context.Context, q *models.Question) error {
	answers, options, err := questionJSON(q)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET question_text = ?, control_type = ?, correct_answers = ?,
		options = ?, display_order = ? WHERE id = ?`,
		q.Text, string(q.ControlType), answers, options, q.DisplayOrder, q.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("question %s not found", q.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---- submission ledger ----

func (s *SQLiteStore) AppendSubmission(ctx context.Context, sub *models.Submission) error {
	raw := sub.Answers
	if raw == nil {
		raw = map[string]models.AnswerValue{}
	}
	answers, err := encodeJSON(raw)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO responses
		(id, survey_id, user_session_id, answers, score_percent, passed, ip_address, user_agent, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.SurveyID, sub.SessionID, answers, sub.ScorePercent, boolToInt64(sub.Passed),
		toNullString(sub.IPAddress), toNullString(sub.UserAgent), sub.SubmittedAt.UTC())
	return err
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, surveyID string) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, survey_id, user_session_id, answers, score_percent, passed,
		ip_address, user_agent, submitted_at FROM responses WHERE survey_id = ? ORDER BY submitted_at DESC, rowid DESC`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Submission
	for rows.Next() {
		var (
			sub       models.Submission
			answers   string
			passed    int64
			ip, agent sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.SurveyID, &sub.SessionID, &answers, &sub.ScorePercent, &passed,
			&ip, &agent, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		sub.Passed = passed != 0
		sub.IPAddress = ip.String
		sub.UserAgent = agent.String
		sub.SubmittedAt = sub.SubmittedAt.UTC()
		if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
			s.logErr("decode answers", err)
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

// ---- audit ----

func (s *SQLiteStore) AddAudit(ctx context.Context, e models.AuditEntry) error {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)",
		ts.UTC(), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	return err
}

func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, "SELECT ts, actor, action, target, note FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var (
			e            models.AuditEntry
			target, note sql.NullString
		)
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &target, &note); err != nil {
			return nil, err
		}
		e.Time = e.Time.UTC()
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- admins ----

func (s *SQLiteStore) FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var u models.AdminUser
	err := s.db.QueryRowContext(ctx, "SELECT id, email, pass_hash, created_at FROM admin_users WHERE email = ?", email).
		Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *SQLiteStore) AddAdmin(ctx context.Context, u *models.AdminUser) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO admin_users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PassHash, u.CreatedAt.UTC())
	return err
}
