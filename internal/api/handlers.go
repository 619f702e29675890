package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"valhalla/internal/auth"
	"valhalla/internal/recorder"
	"valhalla/internal/valhalla"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Now(ctx context.Context) (*valhalla.Outcome, error)
	UpsertFeedback(ctx context.Context, f valhalla.Feedback) (*valhalla.Outcome, error)
	GetResponse(ctx context.Context, id string) (*valhalla.StoredResponse, error)
}

type Recorder interface {
	RecordRequest(ctx context.Context, ex recorder.Exchange) (*recorder.Handle, error)
	Complete(ctx context.Context, organizationID, responseID string, c recorder.Completion) error
}

type Handler struct {
	store    Store
	recorder Recorder
	now      func() time.Time
}

func NewHandler(store Store, rec Recorder) *Handler {
	return &Handler{
		store:    store,
		recorder: rec,
		now:      time.Now,
	}
}

type RecordRequestBody struct {
	URLHref    string                       `json:"url_href"`
	UserID     string                       `json:"user_id"`
	Provider   string                       `json:"provider"`
	Properties map[string]string            `json:"properties"`
	Request    openai.ChatCompletionRequest `json:"request"`
	ReceivedAt *time.Time                   `json:"received_at,omitempty"`
}

type CompleteResponseBody struct {
	HTTPStatus int                            `json:"http_status"`
	Response   *openai.ChatCompletionResponse `json:"response,omitempty"`
	RawBody    json.RawMessage                `json:"raw_body,omitempty"`
	ReceivedAt *time.Time                     `json:"received_at,omitempty"`
}

type FeedbackBody struct {
	ResponseID string     `json:"response_id"`
	Rating     *int       `json:"rating"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Now    any    `json:"now,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler reports whether the analytics store answers.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Now(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}

	resp := HealthResponse{Status: "ok"}
	if len(out.Rows) > 0 {
		resp.Now = out.Rows[0]["now"]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RecordRequestHandler(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.GetOrganizationIDFromContext(r.Context())

	var body RecordRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Request.Model == "" {
		http.Error(w, "request.model is required", http.StatusBadRequest)
		return
	}

	ex := recorder.Exchange{
		URLHref:        body.URLHref,
		UserID:         body.UserID,
		OrganizationID: orgID,
		Provider:       body.Provider,
		Properties:     body.Properties,
		Request:        body.Request,
	}
	if body.ReceivedAt != nil {
		ex.ReceivedAt = *body.ReceivedAt
	}

	handle, err := h.recorder.RecordRequest(r.Context(), ex)
	if err != nil {
		writeStoreError(w, "record request", err)
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

func (h *Handler) CompleteResponseHandler(w http.ResponseWriter, r *http.Request) {
	responseID := r.PathValue("id")
	if responseID == "" {
		http.Error(w, "response id is required", http.StatusBadRequest)
		return
	}

	var body CompleteResponseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.HTTPStatus <= 0 {
		http.Error(w, "http_status is required", http.StatusBadRequest)
		return
	}

	orgID, _ := auth.GetOrganizationIDFromContext(r.Context())
	completion := recorder.Completion{
		HTTPStatus: body.HTTPStatus,
		Response:   body.Response,
		RawBody:    body.RawBody,
	}
	if body.ReceivedAt != nil {
		completion.ReceivedAt = *body.ReceivedAt
	}

	if err := h.recorder.Complete(r.Context(), orgID, responseID, completion); err != nil {
		writeStoreError(w, "complete response", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var body FeedbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ResponseID == "" || body.Rating == nil {
		http.Error(w, "response_id and rating are required", http.StatusBadRequest)
		return
	}

	if !h.ownsResponse(w, r, body.ResponseID) {
		return
	}

	createdAt := h.now()
	if body.CreatedAt != nil {
		createdAt = *body.CreatedAt
	}

	_, err := h.store.UpsertFeedback(r.Context(), valhalla.Feedback{
		ResponseID: body.ResponseID,
		Rating:     *body.Rating,
		CreatedAt:  createdAt,
	})
	if err != nil {
		writeStoreError(w, "upsert feedback", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownsResponse writes an error and returns false unless the response exists
// and belongs to the caller's organization.
func (h *Handler) ownsResponse(w http.ResponseWriter, r *http.Request, responseID string) bool {
	orgID, _ := auth.GetOrganizationIDFromContext(r.Context())

	stored, err := h.store.GetResponse(r.Context(), responseID)
	if err != nil {
		writeStoreError(w, "load response", err)
		return false
	}
	if !stored.OwnedBy(orgID) {
		http.Error(w, "Response not found", http.StatusNotFound)
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, valhalla.ErrNotFound):
		http.Error(w, "Response not found", http.StatusNotFound)
	case errors.Is(err, valhalla.ErrInvalidRecord):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logrus.WithError(err).Errorf("Failed to %s", action)
		http.Error(w, "Analytics store unavailable", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}
