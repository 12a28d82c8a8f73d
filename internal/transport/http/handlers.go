package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// QuizHandler exposes the quiz session use cases over JSON/HTTP.
type QuizHandler struct {
	service  *app.QuizService
	auth     *Authenticator
	validate *validator.Validate
}

func NewQuizHandler(service *app.QuizService, auth *Authenticator) *QuizHandler {
	return &QuizHandler{
		service:  service,
		auth:     auth,
		validate: validator.New(),
	}
}

// Register mounts the quiz routes on r.
func (h *QuizHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/quiz").Subrouter()
	api.Use(h.auth.Middleware)
	api.HandleFunc("/generate", h.Generate).Methods(http.MethodPost)
	api.HandleFunc("/submit-progress", h.SubmitProgress).Methods(http.MethodPost)
	api.HandleFunc("/progress", h.GetProgress).Methods(http.MethodGet)
	api.HandleFunc("/progress", h.ResetProgress).Methods(http.MethodDelete)
	api.HandleFunc("/complete", h.Complete).Methods(http.MethodPost)
	api.HandleFunc("/complete", h.GetResults).Methods(http.MethodGet)
	api.HandleFunc("/access", h.Access).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
}

func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	userID, err := h.resolveUser(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.UserID = userID
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required fields: userId, quizType, difficulty, subject, maxQuestions"})
		return
	}

	result, err := h.service.Generate(r.Context(), app.GenerateRequest{
		UserID:       req.UserID,
		QuizType:     domain.QuizType(req.QuizType),
		Difficulty:   domain.Difficulty(req.Difficulty),
		Subject:      req.Subject,
		MaxQuestions: req.MaxQuestions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		SessionID: result.SessionID,
		Questions: toClientQuestions(result.Questions),
		TimeLimit: result.TimeLimit,
		Success:   true,
	})
}

func (h *QuizHandler) SubmitProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required fields: sessionId, currentQuestionIndex, answers, bookmarked, timeRemaining"})
		return
	}
	if err := h.authorizeSession(r, req.SessionID); err != nil {
		writeError(w, r, err)
		return
	}

	savedAt, err := h.service.SaveProgress(r.Context(), req.toUpdate(req.SessionID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Progress saved", Timestamp: &savedAt})
}

func (p progressPayload) toUpdate(sessionID string) app.ProgressUpdate {
	return app.ProgressUpdate{
		SessionID:            sessionID,
		CurrentQuestionIndex: *p.CurrentQuestionIndex,
		Answers:              p.Answers,
		Bookmarked:           p.Bookmarked,
		TimeRemaining:        *p.TimeRemaining,
	}
}

func (h *QuizHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sessionId is required"})
		return
	}
	if err := h.authorizeSession(r, sessionID); err != nil {
		writeError(w, r, err)
		return
	}
	snapshot, err := h.service.GetProgress(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *QuizHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sessionId is required"})
		return
	}
	if err := h.authorizeSession(r, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, r, err)
		return
	}
	if err := h.service.ResetProgress(r.Context(), sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session"})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Progress reset"})
}

func (h *QuizHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sessionId is required"})
		return
	}
	if err := h.authorizeSession(r, req.SessionID); err != nil {
		writeError(w, r, err)
		return
	}

	results, err := h.service.Complete(r.Context(), app.CompleteRequest{
		SessionID:    req.SessionID,
		FinalAnswers: req.FinalAnswers,
		TimeTaken:    req.TimeTaken,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *QuizHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sessionId is required"})
		return
	}
	if err := h.authorizeSession(r, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			err = domain.ErrResultsNotFound
		}
		writeError(w, r, err)
		return
	}
	results, err := h.service.GetResults(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *QuizHandler) Access(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID, err := h.resolveUser(r, query.Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	quizType := query.Get("quizType")
	if userID == "" || quizType == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId and quizType are required"})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Access(r.Context(), userID, domain.QuizType(quizType)))
}

func (h *QuizHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUser(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}
	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// resolveUser prefers the authenticated identity; a conflicting claimed id is denied.
func (h *QuizHandler) resolveUser(r *http.Request, claimed string) (string, error) {
	uid, ok := authenticatedUser(r)
	if !ok {
		return claimed, nil
	}
	if claimed != "" && claimed != uid {
		return "", domain.ErrAccessDenied
	}
	return uid, nil
}

// authorizeSession checks that the authenticated user owns the session.
// Without authentication it is a no-op.
func (h *QuizHandler) authorizeSession(r *http.Request, sessionID string) error {
	uid, ok := authenticatedUser(r)
	if !ok {
		return nil
	}
	owner, err := h.service.SessionOwner(r.Context(), sessionID)
	if err != nil {
		return err
	}
	if owner != uid {
		return domain.ErrAccessDenied
	}
	return nil
}
