package db

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertAPIRequestParams captures one provider/tracking HTTP exchange.
type InsertAPIRequestParams struct {
	Provider        string
	Method          string
	URL             string
	RequestHeaders  sql.NullString
	RequestBody     sql.NullString
	ResponseStatus  sql.NullInt64
	ResponseHeaders sql.NullString
	ResponseBody    sql.NullString
	Error           sql.NullString
	DurationMs      sql.NullInt64
}

// InsertAPIRequest appends an API traffic row for debugging and audit.
func (s *Store) InsertAPIRequest(ctx context.Context, arg InsertAPIRequestParams) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO api_requests (
			provider, method, url, request_headers, request_body,
			response_status, response_headers, response_body, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Provider, arg.Method, arg.URL, arg.RequestHeaders, arg.RequestBody,
		arg.ResponseStatus, arg.ResponseHeaders, arg.ResponseBody, arg.Error, arg.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("inserting api request: %w", err)
	}
	return nil
}
