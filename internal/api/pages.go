package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/session"
	"gwi.com/toolchat/internal/store"
)

// Every handler below reads the session state, applies at most one change,
// then either redirects back to the page or re-renders it with the error and
// the user's draft.

func (h *APIHandler) page(r *http.Request, current string) pageData {
	sessionID := session.IDFromContext(r.Context())
	return pageData{
		Title:      "Tool Chat",
		Stylesheet: h.stylesheet,
		Apps:       h.chatService.Personas(),
		Current:    current,
		HasKey:     h.sessions.HasAPIKey(sessionID),
		Next:       r.URL.Path,
	}
}

func (h *APIHandler) IndexPage(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, http.StatusOK, "index.html", h.page(r, ""))
}

func (h *APIHandler) chatPage(w http.ResponseWriter, r *http.Request, app string, status int, errMsg, draft string) {
	persona, err := h.chatService.Persona(app)
	if err != nil {
		http.Error(w, "Unknown app", http.StatusNotFound)
		return
	}

	data := h.page(r, app)
	data.Title, data.Icon = persona.Title, persona.Icon
	data.Persona = persona
	data.Onboarding = persona.Onboarding
	data.Next = "/apps/" + app
	data.Error, data.Draft = errMsg, draft

	if data.HasKey {
		turns, err := h.chatService.History(r.Context(), session.IDFromContext(r.Context()), app)
		if err != nil {
			log.Printf("Error loading history for app %s: %v", app, err)
			data.Error = "Failed to load chat history."
		}
		data.Turns = turns
	}
	h.views.render(w, status, "chat.html", data)
}

func (h *APIHandler) ChatPage(w http.ResponseWriter, r *http.Request) {
	h.chatPage(w, r, chi.URLParam(r, "app"), http.StatusOK, "", "")
}

func (h *APIHandler) ChatSubmit(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	sessionID := session.IDFromContext(r.Context())
	draft := r.PostFormValue("content")

	_, err := h.chatService.PostMessage(r.Context(), sessionID, h.sessions.APIKey(sessionID), app, draft)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			http.Error(w, "Unknown app", status)
			return
		}
		if status == http.StatusBadGateway {
			log.Printf("Error posting message for app %s: %v", app, err)
		}
		h.chatPage(w, r, app, status, errorText(err), draft)
		return
	}
	http.Redirect(w, r, "/apps/"+app, http.StatusSeeOther)
}

func (h *APIHandler) ChatReset(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if err := h.chatService.Reset(r.Context(), session.IDFromContext(r.Context()), app); err != nil {
		if errors.Is(err, core.ErrUnknownApp) {
			http.Error(w, "Unknown app", http.StatusNotFound)
			return
		}
		log.Printf("Error resetting app %s: %v", app, err)
		h.chatPage(w, r, app, http.StatusInternalServerError, "Failed to clear history.", "")
		return
	}
	http.Redirect(w, r, "/apps/"+app, http.StatusSeeOther)
}

func (h *APIHandler) reframePage(w http.ResponseWriter, r *http.Request, status int, errMsg, draft string) {
	data := h.page(r, store.AnalysisApp)
	data.Title, data.Icon = "Stop Overthinking", "🧠"
	data.Onboarding = core.ReframeOnboarding
	data.Next = "/overthinking"
	data.SeverityLabels = core.SeverityLabels
	data.Error, data.Draft = errMsg, draft

	if data.HasKey {
		analyses, err := h.reframeService.History(r.Context(), session.IDFromContext(r.Context()))
		if err != nil {
			log.Printf("Error loading analyses: %v", err)
			data.Error = "Failed to load past analyses."
		}
		data.Analyses = analyses
	}
	h.views.render(w, status, "reframe.html", data)
}

func (h *APIHandler) ReframePage(w http.ResponseWriter, r *http.Request) {
	h.reframePage(w, r, http.StatusOK, "", "")
}

func (h *APIHandler) ReframeSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	draft := r.PostFormValue("thought")

	if _, err := h.reframeService.Analyze(r.Context(), sessionID, h.sessions.APIKey(sessionID), draft); err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			log.Printf("Error analyzing thought: %v", err)
		}
		h.reframePage(w, r, status, errorText(err), draft)
		return
	}
	http.Redirect(w, r, "/overthinking", http.StatusSeeOther)
}

func (h *APIHandler) ReframeReset(w http.ResponseWriter, r *http.Request) {
	if err := h.reframeService.Reset(r.Context(), session.IDFromContext(r.Context())); err != nil {
		log.Printf("Error resetting analyses: %v", err)
		h.reframePage(w, r, http.StatusInternalServerError, "Failed to clear history.", "")
		return
	}
	http.Redirect(w, r, "/overthinking", http.StatusSeeOther)
}

func (h *APIHandler) SetKeySubmit(w http.ResponseWriter, r *http.Request) {
	h.sessions.SetAPIKey(session.IDFromContext(r.Context()), r.PostFormValue("api_key"))
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

func (h *APIHandler) ForgetKeySubmit(w http.ResponseWriter, r *http.Request) {
	h.sessions.Forget(session.IDFromContext(r.Context()))
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

// safeNext keeps redirects on this host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

func errorText(err error) string {
	return "An error occurred: " + err.Error()
}
