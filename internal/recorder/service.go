package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"valhalla/internal/valhalla"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const DefaultProvider = "OPENAI"

type Store interface {
	InsertRequest(ctx context.Context, r valhalla.Request) (*valhalla.Outcome, error)
	InsertResponse(ctx context.Context, r valhalla.Response) (*valhalla.Outcome, error)
	UpdateResponse(ctx context.Context, r valhalla.Response) (*valhalla.Outcome, error)
	GetResponse(ctx context.Context, id string) (*valhalla.StoredResponse, error)
}

// Exchange is an inbound chat completion call about to be proxied.
type Exchange struct {
	URLHref        string
	UserID         string
	OrganizationID string
	Provider       string
	Properties     map[string]string
	Request        openai.ChatCompletionRequest
	ReceivedAt     time.Time
}

// Completion is the provider's answer. Response is nil when the provider
// failed; RawBody then holds whatever it sent back.
type Completion struct {
	HTTPStatus int
	Response   *openai.ChatCompletionResponse
	RawBody    json.RawMessage
	ReceivedAt time.Time
}

type Handle struct {
	RequestID  string    `json:"request_id"`
	ResponseID string    `json:"response_id"`
	ReceivedAt time.Time `json:"received_at"`
}

type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RecordRequest stores the request row and a placeholder response row that
// Complete fills in later.
func (s *Service) RecordRequest(ctx context.Context, ex Exchange) (*Handle, error) {
	receivedAt := ex.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}
	provider := ex.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	userID := ex.UserID
	if userID == "" {
		userID = ex.Request.User
	}

	h := &Handle{
		RequestID:  s.newID(),
		ResponseID: s.newID(),
		ReceivedAt: receivedAt,
	}

	req := valhalla.Request{
		ID:                h.RequestID,
		CreatedAt:         s.now(),
		URLHref:           ex.URLHref,
		UserID:            userID,
		Properties:        ex.Properties,
		OrganizationID:    ex.OrganizationID,
		Provider:          provider,
		Body:              ex.Request,
		RequestReceivedAt: receivedAt,
		Model:             ex.Request.Model,
	}
	if _, err := s.store.InsertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}

	placeholder := valhalla.Response{
		ID:             h.ResponseID,
		CreatedAt:      receivedAt,
		Request:        h.RequestID,
		Model:          ex.Request.Model,
		OrganizationID: ex.OrganizationID,
	}
	if _, err := s.store.InsertResponse(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("failed to record response placeholder for request %s: %w", h.RequestID, err)
	}

	logrus.WithFields(logrus.Fields{
		"request_id":  h.RequestID,
		"response_id": h.ResponseID,
		"model":       ex.Request.Model,
	}).Debug("Recorded request")
	return h, nil
}

// Complete writes the provider's answer into the placeholder response. A
// response owned by another organization is reported as valhalla.ErrNotFound.
func (s *Service) Complete(ctx context.Context, organizationID, responseID string, c Completion) error {
	stored, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return fmt.Errorf("failed to load response %s: %w", responseID, err)
	}
	if !stored.OwnedBy(organizationID) {
		return fmt.Errorf("response %s: %w", responseID, valhalla.ErrNotFound)
	}

	receivedAt := c.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}
	delay := receivedAt.Sub(stored.CreatedAt).Milliseconds()
	if delay < 0 {
		delay = 0
	}

	resp := valhalla.Response{
		ID:                 responseID,
		DelayMs:            delay,
		HTTPStatus:         c.HTTPStatus,
		ResponseReceivedAt: &receivedAt,
	}
	if stored.Model != nil {
		resp.Model = *stored.Model
	}

	if c.Response != nil {
		resp.Body = c.Response
		if c.Response.Model != "" {
			resp.Model = c.Response.Model
		}
		promptTokens := int64(c.Response.Usage.PromptTokens)
		completionTokens := int64(c.Response.Usage.CompletionTokens)
		resp.PromptTokens = &promptTokens
		resp.CompletionTokens = &completionTokens
	} else if len(c.RawBody) > 0 {
		resp.Body = c.RawBody
	}

	if _, err := s.store.UpdateResponse(ctx, resp); err != nil {
		return fmt.Errorf("failed to complete response %s: %w", responseID, err)
	}
	return nil
}
