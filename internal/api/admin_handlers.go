package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/pregate/internal/middleware"
	"github.com/soaringjerry/pregate/internal/services"
)

// ---- auth ----

// POST /api/admin/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, http.StatusBadRequest, rt.t(r, "auth.invalid"), nil)
		return
	}
	res, err := rt.auth.Login(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		se, ok := services.AsServiceError(err)
		switch {
		case ok && se.Code == services.ErrorInvalid:
			rt.writeError(w, http.StatusBadRequest, rt.t(r, "auth.invalid"), nil)
		case ok && se.Code == services.ErrorUnauthorized:
			rt.writeError(w, http.StatusUnauthorized, rt.t(r, "auth.invalid"), nil)
		default:
			rt.fail(w, r, err, "auth.invalid")
		}
		return
	}
	http.SetCookie(w, middleware.SessionCookie(res.Token, rt.auth.TokenTTL(), !rt.cfg.IsDevelopment()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"email":      res.Email,
		"token":      res.Token,
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})
}

// POST /api/admin/logout
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, middleware.SessionCookie("", 0, !rt.cfg.IsDevelopment()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /api/admin/me
func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"email": c.Email, "admin_id": c.AdminID})
}

// GET /api/admin/audit?limit=
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := rt.ledger.Audit(r.Context(), limit)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ---- surveys ----

func (rt *Router) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.surveys.List(r.Context())
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSurveyRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	sv, err := rt.surveys.Create(r.Context(), middleware.ActorFromContext(r.Context()), req)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

func (rt *Router) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateSurveyRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	sv, err := rt.surveys.Update(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// ---- ledger ----

// GET /api/admin/surveys/{id}/responses
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.ledger.Submissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GET /api/admin/surveys/{id}/responses/export
func (rt *Router) handleExportResponses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := rt.ledger.ExportCSV(r.Context(), id)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "responses-"+id+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /api/admin/surveys/{id}/stats
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := rt.ledger.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ---- questions ----

func (rt *Router) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	list, err := rt.questions.List(r.Context())
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (rt *Router) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in services.QuestionInput
	if err := rt.decodeJSON(w, r, &in); err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	q, err := rt.questions.Create(r.Context(), middleware.ActorFromContext(r.Context()), in)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (rt *Router) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var p services.QuestionPatch
	if err := rt.decodeJSON(w, r, &p); err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	q, err := rt.questions.Update(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), p)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (rt *Router) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := rt.questions.Delete(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/admin/questions/import (YAML body)
func (rt *Router) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.bodyLimit()*4))
	if err != nil {
		rt.fail(w, r, services.NewInvalidError("question file too large"), "request.invalid")
		return
	}
	n, err := rt.questions.ImportYAML(r.Context(), middleware.ActorFromContext(r.Context()), data)
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"imported": n})
}
