package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitazume/personabot/internal/persona"
	"github.com/kitazume/personabot/internal/storage"
)

// AdminDeps holds dependencies for the operator API.
type AdminDeps struct {
	Store    *storage.Store
	Registry *persona.Registry
	Token    string
	Version  string
}

// NewAdminHandler returns the bearer-token-guarded operator API: persona
// catalog inspection, conversation inspection/eviction, and server status.
func NewAdminHandler(deps AdminDeps) http.Handler {
	r := chi.NewRouter()
	AddAdminRoutes(r, deps)
	return r
}

// AddAdminRoutes registers the operator routes on r inside a route group, so
// the bearer-token middleware guards only these and not whatever else shares
// the router.
func AddAdminRoutes(r chi.Router, deps AdminDeps) {
	r.Group(func(g chi.Router) {
		g.Use(BearerAuth(deps.Token))

		g.Get("/api/personas", handleListPersonas(deps))
		g.Get("/api/personas/{id}", handleGetPersona(deps))
		g.Get("/api/conversations/{id}", handleGetConversation(deps))
		g.Delete("/api/conversations/{id}", handleDeleteConversation(deps))
		g.Get("/api/status", handleStatus(deps))
	})
}

// personaView is the catalog entry exposed to operators. System prompts are
// configuration, not secrets, but they are bulky; the list view omits them.
type personaView struct {
	ID          string  `json:"id"`
	Command     string  `json:"command"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func handleListPersonas(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := deps.Registry.All()
		views := make([]personaView, len(all))
		for i, p := range all {
			views[i] = personaView{
				ID:          p.ID,
				Command:     p.Command,
				DisplayName: p.DisplayName,
				Description: p.Description,
				Temperature: p.Temperature,
				MaxTokens:   p.MaxTokens,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"personas": views})
	}
}

func handleGetPersona(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := deps.Registry.FindByID(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no such persona")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleGetConversation(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := deps.Store.GetConversation(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no such conversation")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "loading conversation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleDeleteConversation(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteConversation(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no such conversation")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "deleting conversation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleStatus(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Store.CountConversations(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "counting conversations: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"version":       deps.Version,
			"personas":      len(deps.Registry.All()),
			"conversations": count,
		})
	}
}
