package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/middleware"
	"github.com/soaringjerry/pregate/internal/services"
)

// GET /api/survey/{inviteToken}?sessionId=
func (rt *Router) handleIssue(w http.ResponseWriter, r *http.Request) {
	issued, err := rt.screening.Issue(r.Context(), services.IssueRequest{
		InviteToken: chi.URLParam(r, "inviteToken"),
		SessionID:   r.URL.Query().Get("sessionId"),
	})
	if err != nil {
		rt.fail(w, r, err, "request.invalid")
		return
	}
	writeJSON(w, http.StatusOK, issued)
}

// POST /api/survey/submit
// { surveyId, sessionId, answers: {questionId: string | string[]}, startedAt, honeypot? }
// Bot rejections answer exactly like a failed attempt.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err, "submission.invalid")
		return
	}
	req.IP = middleware.ClientIP(r)
	req.UserAgent = r.UserAgent()

	decision, err := rt.admission.Evaluate(r.Context(), req)
	if err != nil {
		rt.fail(w, r, err, "submission.invalid")
		return
	}
	if decision.Rejection != "" {
		rt.log.Warn("submission rejected",
			zap.String("correlation_id", middleware.CorrelationIDFromContext(r.Context())),
			zap.String("survey_id", req.SurveyID),
			zap.String("reason", decision.Rejection),
			zap.String("ip", req.IP))
	}
	writeJSON(w, http.StatusOK, decision)
}
