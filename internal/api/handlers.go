package api

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/newsletter/internal/newsletter"
	"github.com/ignite/newsletter/internal/subscription"
)

// Handlers holds the workflow dependencies of the HTTP surface.
type Handlers struct {
	subscriptions *subscription.Service
	dispatcher    *newsletter.Dispatcher
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(subscriptions *subscription.Service, dispatcher *newsletter.Dispatcher) *Handlers {
	return &Handlers{
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSubscribe accepts a form-encoded {name, email} subscription request.
//
//	422: unparseable payload or missing fields (boundary concern)
//	400: fields present but invalid (domain validation)
//	500: storage or confirmation-email failure
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "could not parse form payload")
		return
	}
	if !r.PostForm.Has("name") || !r.PostForm.Has("email") {
		respondMessage(w, http.StatusUnprocessableEntity, "name and email are required")
		return
	}

	err := h.subscriptions.Subscribe(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleConfirm confirms a pending subscriber via their token.
//
//	400: missing subscription_token parameter (boundary concern)
//	401: token was never issued (or has expired)
//	500: storage failure
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		respondMessage(w, http.StatusBadRequest, "subscription_token is required")
		return
	}

	if err := h.subscriptions.Confirm(r.Context(), token); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandlePublishNewsletter broadcasts an issue to all confirmed subscribers.
// The response is 200 once the batch has been traversed, even when some
// recipients failed; partial failure is visible in logs and metrics only.
//
//	422: malformed body (boundary concern)
//	409: another dispatch run is in progress
//	500: storage failure
func (h *Handlers) HandlePublishNewsletter(w http.ResponseWriter, r *http.Request) {
	var issue newsletter.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "could not parse newsletter body")
		return
	}
	if issue.Title == "" || (issue.Content.HTML == "" && issue.Content.Text == "") {
		respondMessage(w, http.StatusUnprocessableEntity, "title and content are required")
		return
	}

	if _, err := h.dispatcher.Dispatch(r.Context(), issue); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
