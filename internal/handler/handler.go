package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appI18n "github.com/pavelanni/tutorquiz/internal/i18n"
	"github.com/pavelanni/tutorquiz/internal/model"
	"github.com/pavelanni/tutorquiz/internal/quiz"
	"github.com/pavelanni/tutorquiz/internal/store"
)

// Config holds HTTP-layer settings.
type Config struct {
	JWTSecret string
	JWTIssuer string
	Lang      string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc    *quiz.Service
	store  *store.Store
	auth   *Authenticator
	config Config
}

// New creates a new Handler.
func New(svc *quiz.Service, s *store.Store, cfg Config) *Handler {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	return &Handler{
		svc:    svc,
		store:  s,
		auth:   NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		config: cfg,
	}
}

// Router returns the complete HTTP handler with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(h.config.Lang))
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/courses/{courseID}/quizzes", h.handleListQuizzes)
		r.Post("/courses/{courseID}/quizzes", h.handleCreateQuiz)
		if h.svc.HasDrafter() {
			r.Post("/courses/{courseID}/quizzes/generate", h.handleGenerateQuiz)
		}

		r.Get("/quizzes/{quizID}", h.handleGetQuiz)
		r.Patch("/quizzes/{quizID}", h.handleUpdateQuiz)
		r.Delete("/quizzes/{quizID}", h.handleDeleteQuiz)
		r.Post("/quizzes/{quizID}/publish", h.handlePublishQuiz)

		r.Post("/quizzes/{quizID}/attempts", h.handleSubmitAttempt)
		r.Get("/quizzes/{quizID}/attempts/me", h.handleMyAttempts)
		r.Get("/quizzes/{quizID}/results", h.handleTutorResults)
		r.Get("/results/{resultID}", h.handleGetResult)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListQuizzes(r.Context(), actorFrom(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in model.QuizInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := h.svc.CreateQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "courseID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var in model.GenerateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := h.svc.GenerateQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "courseID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var patch model.QuizPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	v, err := h.svc.UpdateQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handlePublishQuiz(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.PublishQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQuiz(r.Context(), actorFrom(r), chi.URLParam(r, "quizID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var in model.SubmitInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.svc.SubmitAttempt(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleMyAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.svc.StudentResults(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleTutorResults(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.TutorResults(r.Context(), actorFrom(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Result(r.Context(), actorFrom(r), chi.URLParam(r, "resultID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
