package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/pregate/internal/models"
)

type TokenSigner func(adminID, email string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AdminStore
	audit     AuditLog
	now       func() time.Time
	idGen     func() string
	signToken TokenSigner
	tokenTTL  time.Duration
	cost      int
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token     string
	AdminID   string
	Email     string
	ExpiresAt time.Time
}

func NewAuthService(store AdminStore, audit AuditLog, signer TokenSigner, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{
		store:     store,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     newUUID,
		signToken: signer,
		tokenTTL:  ttl,
		cost:      bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks admin credentials and signs a session token. Unknown emails and wrong passwords
// produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ip string) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, NewInvalidError("invalid credentials")
	}
	u, err := s.store.FindAdminByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewPersistenceError("failed to load admin", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword(u.PassHash, []byte(req.Password)) != nil {
		s.record(ctx, req.Email, "admin_login_failed", ip)
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u.Email, "admin_login", ip)
	return &AuthResult{Token: token, AdminID: u.ID, Email: u.Email, ExpiresAt: s.now().Add(s.tokenTTL)}, nil
}

// EnsureAdmin creates the admin account when no account with that email exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return false, NewInvalidError("email/password required")
	}
	existing, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, err
	}
	if err := s.store.AddAdmin(ctx, &models.AdminUser{ID: s.idGen(), Email: email, PassHash: hash, CreatedAt: s.now()}); err != nil {
		return false, err
	}
	s.record(ctx, "system", "create_admin", email)
	return true, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *AuthService) record(ctx context.Context, actor, action, target string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target})
}
