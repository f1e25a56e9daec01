package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/progress"
	"github.com/jonathan/interview-prep/internal/server/middleware"
	"github.com/jonathan/interview-prep/internal/types"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

type submitResponse struct {
	SearchID  string             `json:"search_id"`
	Status    types.SearchStatus `json:"status"`
	StatusURL string             `json:"status_url"`
	EventsURL string             `json:"events_url"`
}

type statusResponse struct {
	SearchID              string             `json:"search_id"`
	Status                types.SearchStatus `json:"status"`
	Company               string             `json:"company"`
	Role                  string             `json:"role,omitempty"`
	ProgressStep          string             `json:"progress_step,omitempty"`
	ProgressUpdatedAt     *time.Time         `json:"progress_updated_at,omitempty"`
	Error                 string             `json:"error,omitempty"`
	OverallFitScore       *float64           `json:"overall_fit_score,omitempty"`
	PreparationPriorities []string           `json:"preparation_priorities,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func newStatusResponse(s *db.Search) statusResponse {
	resp := statusResponse{
		SearchID:              s.ID,
		Status:                s.Status,
		Company:               s.Company,
		Role:                  s.Role,
		ProgressUpdatedAt:     s.ProgressUpdatedAt,
		OverallFitScore:       s.OverallFitScore,
		PreparationPriorities: s.PreparationPriorities,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
	if s.ProgressStep != nil {
		resp.ProgressStep = *s.ProgressStep
	}
	if s.ErrorMessage != nil {
		resp.Error = *s.ErrorMessage
	}
	return resp
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit creates a search and starts its run in the background.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.ResearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, &ErrValidation{Message: "request body must be a JSON object"})
		return
	}
	req.Normalize()
	if userID, ok := middleware.UserID(r.Context()); ok {
		req.UserID = userID
	}

	if req.SearchID == "" {
		req.SearchID = s.newID()
	} else if existing, err := s.store.GetSearch(r.Context(), req.SearchID); err != nil {
		s.writeError(w, r, err)
		return
	} else if existing != nil {
		s.writeError(w, r, &ErrConflict{ID: req.SearchID})
		return
	}

	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	if err := s.store.CreateSearch(r.Context(), db.SearchInput{
		ID: req.SearchID, UserID: req.UserID, Company: req.Company,
		Role: req.Role, Country: req.Country, Seniority: string(req.Seniority),
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.startRun(r.Context(), req)

	s.jsonResponse(w, http.StatusAccepted, submitResponse{
		SearchID:  req.SearchID,
		Status:    types.SearchPending,
		StatusURL: "/research/" + req.SearchID,
		EventsURL: "/research/" + req.SearchID + "/events",
	})
}

// startRun runs req detached from the request so a client disconnect does
// not cancel it.
func (s *Server) startRun(ctx context.Context, req types.ResearchRequest) {
	runCtx := context.WithoutCancel(ctx)
	log := observability.LoggerFromContext(ctx).With(slog.String("search_id", req.SearchID))

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.tracker.Forget(req.SearchID)
		if _, err := s.runner.Run(runCtx, req); err != nil {
			log.Warn("background research run failed", slog.String("error", err.Error()))
		}
	}()
}

// handleList lists the caller's recent searches.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		s.writeError(w, r, &ErrValidation{Field: "user_id", Message: "is required"})
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "must be between 1 and 100"})
			return
		}
		limit = n
	}

	searches, err := s.store.ListSearches(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]statusResponse, 0, len(searches))
	for i := range searches {
		out = append(out, newStatusResponse(&searches[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"searches": out})
}

// lookup loads the search named by the path, hiding other users' searches.
func (s *Server) lookup(r *http.Request) (*db.Search, error) {
	id := r.PathValue("id")
	search, err := s.store.GetSearch(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if search == nil {
		return nil, &ErrNotFound{Resource: "search", ID: id}
	}
	if userID, ok := middleware.UserID(r.Context()); ok && search.UserID != "" && search.UserID != userID {
		return nil, &ErrNotFound{Resource: "search", ID: id}
	}
	return search, nil
}

// handleStatus returns status, progress step and error of a search.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	search, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newStatusResponse(search))
}

// handleArtifact returns the research artifact of a search.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	search, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.store.GetResearchArtifact(r.Context(), search.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if artifact == nil {
		s.writeError(w, r, &ErrNotFound{Resource: "artifact", ID: search.ID})
		return
	}
	s.jsonResponse(w, http.StatusOK, artifact)
}

// handleStages returns the persisted stages with their questions.
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	search, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stages, err := s.store.ListStagesWithQuestions(r.Context(), search.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stages == nil {
		stages = []db.StageWithQuestions{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"search_id": search.ID,
		"status":    search.Status,
		"stages":    stages,
	})
}

// handleEvents streams progress events until the search reaches a terminal
// state or the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before reading state so no transition falls in between.
	events, unsubscribe := s.tracker.Subscribe(r.PathValue("id"))
	defer unsubscribe()

	search, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if search.Status.IsTerminal() {
		sse.WriteComplete(search.ID, string(search.Status))
		return
	}
	if step, ok := s.tracker.Current(search.ID); ok {
		_ = sse.WriteEvent("progress", progress.Event{SearchID: search.ID, Step: step, At: time.Now().UTC()})
	} else if search.ProgressStep != nil {
		ev := progress.Event{SearchID: search.ID, Step: progress.Step(*search.ProgressStep)}
		if search.ProgressUpdatedAt != nil {
			ev.At = *search.ProgressUpdatedAt
		}
		_ = sse.WriteEvent("progress", ev)
	}

	ticker := time.NewTicker(s.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := sse.WriteEvent("progress", ev); err != nil {
				return
			}
			if ev.Step.IsTerminal() {
				status := types.SearchCompleted
				if ev.Step == progress.StepFailed {
					status = types.SearchFailed
				}
				sse.WriteComplete(search.ID, string(status))
				return
			}
		case <-ticker.C:
			current, err := s.store.GetSearch(r.Context(), search.ID)
			if err != nil && !errors.Is(err, context.Canceled) {
				sse.WriteError("status lookup failed")
				return
			}
			if current != nil && current.Status.IsTerminal() {
				sse.WriteComplete(search.ID, string(current.Status))
				return
			}
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}
