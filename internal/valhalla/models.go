package valhalla

import (
	"time"
)

// Request is one inbound call proxied to a provider.
type Request struct {
	ID                string
	CreatedAt         time.Time
	URLHref           string
	UserID            string
	Properties        map[string]string
	OrganizationID    string
	Provider          string
	Body              any
	RequestReceivedAt time.Time
	Model             string
}

// Response is written as a placeholder when the call starts and filled in by
// UpdateResponse once the provider answers.
type Response struct {
	ID                 string
	CreatedAt          time.Time
	Body               any
	Request            string
	DelayMs            int64
	HTTPStatus         int
	CompletionTokens   *int64
	Model              string
	PromptTokens       *int64
	ResponseReceivedAt *time.Time
	OrganizationID     string
}

type Feedback struct {
	ResponseID string
	Rating     int
	CreatedAt  time.Time
}

// Outcome is the raw result of a statement.
type Outcome struct {
	RowsAffected int64
	Rows         []map[string]any
}

type StoredResponse struct {
	ID                 string     `db:"id" json:"id"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	Body               *string    `db:"body" json:"body,omitempty"`
	Request            string     `db:"request" json:"request"`
	DelayMs            *int64     `db:"delay_ms" json:"delay_ms,omitempty"`
	HTTPStatus         *int64     `db:"http_status" json:"http_status,omitempty"`
	CompletionTokens   *int64     `db:"completion_tokens" json:"completion_tokens,omitempty"`
	Model              *string    `db:"model" json:"model,omitempty"`
	PromptTokens       *int64     `db:"prompt_tokens" json:"prompt_tokens,omitempty"`
	ResponseReceivedAt *time.Time `db:"response_received_at" json:"response_received_at,omitempty"`
	OrganizationID     *string    `db:"helicone_org_id" json:"helicone_org_id,omitempty"`
}

// OwnedBy reports whether organizationID may act on the response. Rows
// written without an organization are open to every caller.
func (r *StoredResponse) OwnedBy(organizationID string) bool {
	return r.OrganizationID == nil || *r.OrganizationID == "" || *r.OrganizationID == organizationID
}

type StoredFeedback struct {
	ResponseID string    `db:"response_id" json:"response_id"`
	Rating     int64     `db:"rating" json:"rating"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
