// Package apilog records outbound provider and tracking API traffic in
// the database, so quoting and settlement calls can be audited after
// the fact.
package apilog

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/RaghavSood/multiswap/db"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "apilog").Logger()
}

// Bodies larger than this are stored truncated.
const maxBodySize = 64 * 1024

// NewHTTPClient returns a client whose traffic is recorded in the store
// under the given provider tag.
func NewHTTPClient(provider string, store *db.Store) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &transport{
			next:     http.DefaultTransport,
			provider: provider,
			store:    store,
		},
	}
}

type transport struct {
	next     http.RoundTripper
	provider string
	store    *db.Store
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	row := db.InsertAPIRequestParams{
		Provider:       t.provider,
		Method:         req.Method,
		URL:            req.URL.String(),
		RequestHeaders: nullable(renderHeaders(req.Header)),
		RequestBody:    nullable(capture(&req.Body)),
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	row.DurationMs = sql.NullInt64{Int64: time.Since(start).Milliseconds(), Valid: true}

	if err != nil {
		row.Error = nullable(err.Error())
	} else {
		row.ResponseStatus = sql.NullInt64{Int64: int64(resp.StatusCode), Valid: true}
		row.ResponseHeaders = nullable(renderHeaders(resp.Header))
		row.ResponseBody = nullable(capture(&resp.Body))
	}

	// Persist off the request path.
	go func() {
		if dbErr := t.store.InsertAPIRequest(context.Background(), row); dbErr != nil {
			log.Warn().Err(dbErr).Str("method", row.Method).Str("url", row.URL).Msg("recording api request")
		}
	}()

	return resp, err
}

// capture drains a body, puts a replayable copy back, and returns a
// truncated string of what was read.
func capture(body *io.ReadCloser) string {
	if body == nil || *body == nil {
		return ""
	}
	data, _ := io.ReadAll(*body)
	*body = io.NopCloser(bytes.NewReader(data))

	if len(data) > maxBodySize {
		return string(data[:maxBodySize]) + "...[truncated]"
	}
	return string(data)
}

func renderHeaders(h http.Header) string {
	var buf bytes.Buffer
	h.Write(&buf)
	return buf.String()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
