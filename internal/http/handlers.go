package http

import (
	"context"
	"net/http"
	"strings"

	"duotoeic/internal/auth"
	"duotoeic/internal/models"
	"duotoeic/internal/service"

	"github.com/go-chi/chi/v5"
)

type sessionRequest struct {
	UserID models.UserID `json:"user_id"`
	PIN    string        `json:"pin"`
}

type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	User        models.User `json:"user"`
}

type meResponse struct {
	User    models.User `json:"user"`
	Partner models.User `json:"partner"`
}

type penaltyRequest struct {
	Penalty string `json:"penalty"`
}

type goalRequest struct {
	Text string `json:"text"`
}

type writingRequest struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

type speakingRequest struct {
	Question   string `json:"question"`
	Transcript string `json:"transcript"`
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Service.Users)
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(string(req.UserID)) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id required")
		return
	}
	token, user, err := a.Service.Login(r.Context(), req.UserID, req.PIN)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{AccessToken: token, User: user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, partner, err := a.Service.Profile(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Partner: partner})
}

func (a *API) handleGetPlan(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Service.PlanView())
}

func (a *API) handleSetPenalty(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req penaltyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := a.Service.SetPenalty(r.Context(), userID, req.Penalty); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Service.PlanView())
}

func (a *API) handleStartPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req penaltyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := a.Service.StartPeriod(r.Context(), userID, req.Penalty); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.Service.PlanView())
}

func (a *API) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner := models.UserID(chi.URLParam(r, "owner"))
	if _, err := a.Service.AddGoal(r.Context(), userID, owner, req.Text); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.Service.PlanView())
}

type goalCommand func(ctx context.Context, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error)

// goalHandler serves a command on an existing goal under
// /plan/users/{owner}/goals/{id}.
func (a *API) goalHandler(cmd goalCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		owner := models.UserID(chi.URLParam(r, "owner"))
		if _, err := cmd(r.Context(), userID, owner, chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Service.PlanView())
	}
}

func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := a.Service.Logs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs.Entries())
}

func (a *API) handleAddLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.LogInput
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := a.Service.AddLog(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Service.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDailyTopic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"topic": a.Service.DailyTopic(r.Context())})
}

func (a *API) handleSpeakingQuestion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"question": a.Service.SpeakingQuestion(r.Context())})
}

func (a *API) handleCheckWriting(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req writingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := a.Service.CheckWriting(r.Context(), userID, req.Topic, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCheckSpeaking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req speakingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := a.Service.CheckSpeaking(r.Context(), userID, req.Question, req.Transcript)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func currentUser(w http.ResponseWriter, r *http.Request) (models.UserID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing user")
	}
	return userID, ok
}
