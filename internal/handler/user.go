package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/videohub/internal/service"
)

// UserHandler lets admins provision and remove users.
type UserHandler struct {
	identity *service.IdentityService
	logger   *slog.Logger
}

func NewUserHandler(identity *service.IdentityService, logger *slog.Logger) *UserHandler {
	return &UserHandler{identity: identity, logger: logger}
}

// HandleCreate provisions a password user with role user.
//
// HTTP: POST /api/users
// REQUEST BODY: {"email": "...", "name": "...", "password": "..."}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var in service.CreateEditorInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.identity.CreateEditor(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleDelete removes a user.
//
// HTTP: DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := h.identity.DeleteUser(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
