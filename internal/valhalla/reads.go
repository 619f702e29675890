package valhalla

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const getResponseSQL = `
	SELECT
		id,
		created_at,
		body::text AS body,
		request,
		delay_ms,
		http_status,
		completion_tokens,
		model,
		prompt_tokens,
		response_received_at,
		helicone_org_id
	FROM response
	WHERE id = $1
`

const getFeedbackSQL = `
	SELECT response_id, rating, created_at
	FROM feedback
	WHERE response_id = $1
`

func (c *Client) GetResponse(ctx context.Context, id string) (*StoredResponse, error) {
	return get[StoredResponse](ctx, c, "get_response", getResponseSQL, Text(id))
}

func (c *Client) GetFeedback(ctx context.Context, responseID string) (*StoredFeedback, error) {
	return get[StoredFeedback](ctx, c, "get_feedback", getFeedbackSQL, Text(responseID))
}

func get[T any](ctx context.Context, c *Client, op, query string, values ...Value) (*T, error) {
	return run(ctx, c, op, query, func(ctx context.Context, conn *sqlx.Conn) (*T, error) {
		var dest T
		if err := conn.GetContext(ctx, &dest, query, args(values)...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%s failed: %w", op, err)
		}
		return &dest, nil
	})
}
