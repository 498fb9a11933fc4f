package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/service"
)

// ChannelProvider runs the YouTube channel authorization flow.
// *auth.GoogleProvider implements it.
type ChannelProvider interface {
	ChannelURL(state string) string
	ExchangeChannel(ctx context.Context, code string) (*auth.ChannelGrant, error)
}

// AccountHandler serves accounts, their editor rosters and the channel
// connection flow.
type AccountHandler struct {
	accounts *service.AccountService
	channels ChannelProvider
	cookies  cookies
	logger   *slog.Logger
}

func NewAccountHandler(
	accounts *service.AccountService,
	channels ChannelProvider,
	secureCookies bool,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		channels: channels,
		cookies:  cookies{secure: secureCookies},
		logger:   logger,
	}
}

// HandleList returns every account visible to the caller with the
// caller's role on it.
//
// HTTP: GET /api/accounts
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleCreate creates an account owned by the caller.
//
// HTTP: POST /api/accounts
// REQUEST BODY: {"name": "Channel A", "channelId": "UC..."}
func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var in service.CreateAccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// HTTP: GET /api/accounts/{id}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HTTP: GET /api/accounts/{id}/editors
func (h *AccountHandler) HandleListEditors(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	editors, err := h.accounts.ListEditors(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, editors)
}

// HandleAddEditor grants the editor role to an existing user.
//
// HTTP: POST /api/accounts/{id}/editors
// REQUEST BODY: {"email": "editor@example.com"}
func (h *AccountHandler) HandleAddEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var in service.AddEditorInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	editor, err := h.accounts.AddEditor(r.Context(), id, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, editor)
}

// HTTP: DELETE /api/accounts/{id}/editors/{userID}
func (h *AccountHandler) HandleRemoveEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	err := h.accounts.RemoveEditor(r.Context(), id, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleConnectChannel starts the channel authorization flow. Only owners
// may connect a channel; the check runs before the browser leaves.
//
// HTTP: GET /api/accounts/{id}/channel/connect
func (h *AccountHandler) HandleConnectChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.RequirePublisher(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := auth.NewState()
	h.cookies.setState(w, channelStateCookie, state, account.ID)
	http.Redirect(w, r, h.channels.ChannelURL(state), http.StatusTemporaryRedirect)
}

// HandleChannelCallback stores the tokens Google returned for the account
// named in the state cookie.
//
// HTTP: GET /auth/youtube/callback?code=xxx&state=yyy
func (h *AccountHandler) HandleChannelCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	accountID, ok := h.cookies.checkState(w, r, channelStateCookie)
	if !ok || accountID == "" {
		h.logger.Warn("channel callback: state mismatch", slog.String("user_id", id.UserID))
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("channel callback: owner denied access",
			slog.String("account_id", accountID),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?channel=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	grant, err := h.channels.ExchangeChannel(r.Context(), code)
	if err != nil {
		h.logger.Error("channel callback: exchange failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		writeError(w, apperror.ValidationFailed("code", "could not authorize the channel"))
		return
	}

	if _, err := h.accounts.ConnectChannel(r.Context(), id, accountID, grant.ChannelID, grant.Credentials); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/?channel=connected", http.StatusSeeOther)
}
