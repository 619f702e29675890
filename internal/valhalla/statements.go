package valhalla

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

const insertRequestSQL = `
	INSERT INTO request (
		id,
		created_at,
		url_href,
		user_id,
		properties,
		helicone_org_id,
		provider,
		body,
		request_received_at,
		model
	)
	VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)
`

const insertResponseSQL = `
	INSERT INTO response (
		id,
		created_at,
		body,
		request,
		delay_ms,
		http_status,
		completion_tokens,
		model,
		prompt_tokens,
		response_received_at,
		helicone_org_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const updateResponseSQL = `
	UPDATE response
	SET
		body = $1,
		delay_ms = $2,
		http_status = $3,
		completion_tokens = $4,
		model = $5,
		prompt_tokens = $6,
		response_received_at = $7
	WHERE id = $8
`

const upsertFeedbackSQL = `
	INSERT INTO feedback (
		response_id,
		rating,
		created_at
	)
	VALUES (
		$1, $2, $3
	)
	ON CONFLICT (response_id) DO UPDATE SET
		rating = EXCLUDED.rating,
		created_at = EXCLUDED.created_at
`

func (c *Client) InsertRequest(ctx context.Context, r Request) (*Outcome, error) {
	st, err := insertRequestStatement(r)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Inserting request %s", r.ID)
	return c.exec(ctx, st)
}

func (c *Client) InsertResponse(ctx context.Context, r Response) (*Outcome, error) {
	st, err := insertResponseStatement(r)
	if err != nil {
		return nil, err
	}
	return c.exec(ctx, st)
}

// UpdateResponse fills the mutable columns of the response identified by r.ID.
func (c *Client) UpdateResponse(ctx context.Context, r Response) (*Outcome, error) {
	st, err := updateResponseStatement(r)
	if err != nil {
		return nil, err
	}
	return c.exec(ctx, st)
}

// UpsertFeedback stores the rating for a response; a later call for the same
// response overwrites rating and created_at.
func (c *Client) UpsertFeedback(ctx context.Context, f Feedback) (*Outcome, error) {
	st, err := upsertFeedbackStatement(f)
	if err != nil {
		return nil, err
	}
	return c.exec(ctx, st)
}

func insertRequestStatement(r Request) (statement, error) {
	if r.ID == "" {
		return statement{}, fmt.Errorf("%w: request id is required", ErrInvalidRecord)
	}
	properties, err := JSON(r.Properties)
	if err != nil {
		return statement{}, err
	}
	body, err := JSON(r.Body)
	if err != nil {
		return statement{}, err
	}

	return statement{
		op:  "insert_request",
		sql: insertRequestSQL,
		args: []Value{
			Text(r.ID),
			Timestamp(r.CreatedAt),
			Text(r.URLHref),
			Text(r.UserID),
			properties,
			Text(r.OrganizationID),
			Text(r.Provider),
			body,
			Timestamp(r.RequestReceivedAt),
			Text(r.Model),
		},
	}, nil
}

func insertResponseStatement(r Response) (statement, error) {
	if r.ID == "" {
		return statement{}, fmt.Errorf("%w: response id is required", ErrInvalidRecord)
	}
	if r.Request == "" {
		return statement{}, fmt.Errorf("%w: response %s has no request", ErrInvalidRecord, r.ID)
	}
	if err := validateCounters(r); err != nil {
		return statement{}, err
	}
	body, err := JSON(r.Body)
	if err != nil {
		return statement{}, err
	}

	return statement{
		op:  "insert_response",
		sql: insertResponseSQL,
		args: []Value{
			Text(r.ID),
			Timestamp(r.CreatedAt),
			body,
			Text(r.Request),
			Int(r.DelayMs),
			Int(int64(r.HTTPStatus)),
			NullableInt(r.CompletionTokens),
			Text(r.Model),
			NullableInt(r.PromptTokens),
			NullableTimestamp(r.ResponseReceivedAt),
			Text(r.OrganizationID),
		},
	}, nil
}

func updateResponseStatement(r Response) (statement, error) {
	if r.ID == "" {
		return statement{}, fmt.Errorf("%w: response id is required", ErrInvalidRecord)
	}
	if err := validateCounters(r); err != nil {
		return statement{}, err
	}
	body, err := JSON(r.Body)
	if err != nil {
		return statement{}, err
	}

	return statement{
		op:  "update_response",
		sql: updateResponseSQL,
		args: []Value{
			body,
			Int(r.DelayMs),
			Int(int64(r.HTTPStatus)),
			NullableInt(r.CompletionTokens),
			Text(r.Model),
			NullableInt(r.PromptTokens),
			NullableTimestamp(r.ResponseReceivedAt),
			Text(r.ID),
		},
	}, nil
}

func upsertFeedbackStatement(f Feedback) (statement, error) {
	if f.ResponseID == "" {
		return statement{}, fmt.Errorf("%w: feedback response id is required", ErrInvalidRecord)
	}

	return statement{
		op:  "upsert_feedback",
		sql: upsertFeedbackSQL,
		args: []Value{
			Text(f.ResponseID),
			Int(int64(f.Rating)),
			Timestamp(f.CreatedAt),
		},
	}, nil
}

func validateCounters(r Response) error {
	if r.DelayMs < 0 {
		return fmt.Errorf("%w: response %s has negative delay %d", ErrInvalidRecord, r.ID, r.DelayMs)
	}
	if r.CompletionTokens != nil && *r.CompletionTokens < 0 {
		return fmt.Errorf("%w: response %s has negative completion tokens", ErrInvalidRecord, r.ID)
	}
	if r.PromptTokens != nil && *r.PromptTokens < 0 {
		return fmt.Errorf("%w: response %s has negative prompt tokens", ErrInvalidRecord, r.ID)
	}
	return nil
}
