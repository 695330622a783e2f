package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/session"
	"gwi.com/toolchat/internal/store"
)

type APIHandler struct {
	chatService    *core.ChatService
	reframeService *core.ReframeService
	sessions       *session.Manager
	views          *views
	stylesheet     template.CSS
}

func NewAPIHandler(cs *core.ChatService, rs *core.ReframeService, sm *session.Manager, stylesheet template.CSS) *APIHandler {
	return &APIHandler{
		chatService:    cs,
		reframeService: rs,
		sessions:       sm,
		views:          parseViews(),
		stylesheet:     stylesheet,
	}
}

// statusFor maps service errors onto HTTP status codes. Anything unclassified
// is a failed model or tool call.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownApp):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingAPIKey):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type AppSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Kind  string `json:"kind"`
}

func (h *APIHandler) ListAppsHandler(w http.ResponseWriter, r *http.Request) {
	apps := make([]AppSummary, 0, len(h.chatService.Personas())+1)
	for _, p := range h.chatService.Personas() {
		apps = append(apps, AppSummary{ID: p.ID, Title: p.Title, Icon: p.Icon, Kind: "chat"})
	}
	apps = append(apps, AppSummary{ID: store.AnalysisApp, Title: "Stop Overthinking", Icon: "🧠", Kind: "structured"})
	writeJSON(w, http.StatusOK, apps)
}

type APIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// SetAPIKeyHandler stores the key for the caller's session; an empty key forgets it.
func (h *APIHandler) SetAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.sessions.SetAPIKey(session.IDFromContext(r.Context()), req.APIKey)
	w.WriteHeader(http.StatusNoContent)
}

type ChatHistoryResponse struct {
	App      string       `json:"app"`
	Messages []store.Turn `json:"messages"`
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	app := chi.URLParam(r, "app")

	turns, err := h.chatService.History(r.Context(), sessionID, app)
	if err != nil {
		if !errors.Is(err, core.ErrUnknownApp) {
			log.Printf("Error listing messages for app %s: %v", app, err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	writeJSON(w, http.StatusOK, ChatHistoryResponse{App: app, Messages: turns})
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	app := chi.URLParam(r, "app")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	modelTurn, err := h.chatService.PostMessage(r.Context(), sessionID, h.sessions.APIKey(sessionID), app, req.Content)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			log.Printf("Error posting message for app %s: %v", app, err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, modelTurn)
}

func (h *APIHandler) ResetChatHandler(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if err := h.chatService.Reset(r.Context(), session.IDFromContext(r.Context()), app); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.reframeService.History(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		log.Printf("Error listing analyses: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list analyses")
		return
	}
	if analyses == nil {
		analyses = []store.Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

type AnalyzeRequest struct {
	Thought string `json:"thought"`
}

func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	analysis, err := h.reframeService.Analyze(r.Context(), sessionID, h.sessions.APIKey(sessionID), req.Thought)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			log.Printf("Error analyzing thought: %v", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, analysis)
}

func (h *APIHandler) ResetAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.reframeService.Reset(r.Context(), session.IDFromContext(r.Context())); err != nil {
		log.Printf("Error resetting analyses: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset analyses")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
