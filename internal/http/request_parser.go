// Package http provides the JSON API server and its handlers.
//
// This file implements helpers for reading path values, query strings and
// JSON bodies into domain types.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/services"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// DecodeJSON reads the request body into dst. An empty body leaves dst
// untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &maxErr):
			return core.NewValidationError("", "request body too large")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return core.NewValidationError("", "invalid JSON body")
		case errors.As(err, &typeErr):
			return core.NewValidationError(typeErr.Field, fmt.Sprintf("must be %s", typeErr.Type))
		default:
			// Field level errors from custom unmarshalers (amounts, dates).
			if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrValidation) {
				return err
			}
			return core.NewValidationError("", "invalid request body: "+err.Error())
		}
	}
	return nil
}

// PathID parses the named path value as a positive id.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, core.NewValidationError(name, "invalid id")
	}
	return id, nil
}

// ParseListQuery reads page, per_page, sort and order.
func ParseListQuery(q url.Values, defaultPerPage int) core.ListQuery {
	lq := core.ListQuery{Page: core.Page{Number: 1, PerPage: defaultPerPage}}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && n > 0 {
		lq.Page.Number = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("per_page"))); err == nil && n > 0 {
		lq.Page.PerPage = n
	}
	if lq.Page.PerPage > services.MaxPerPage {
		lq.Page.PerPage = services.MaxPerPage
	}
	lq.Sort.Column = strings.TrimSpace(q.Get("sort"))
	lq.Sort.Desc = !strings.EqualFold(strings.TrimSpace(q.Get("order")), "asc")
	return lq
}

// QueryString returns a trimmed, sanitized query value.
func QueryString(q url.Values, key string) string {
	return sanitizeInput(q.Get(key))
}

// QueryInt64 parses an optional positive id filter.
func QueryInt64(q url.Values, key string) (*int64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, core.NewValidationError(key, "must be an integer")
	}
	return &n, nil
}

// QueryInt parses an optional integer, returning def when absent.
func QueryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

// QueryBool parses an optional boolean filter.
func QueryBool(q url.Values, key string) (*bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.NewValidationError(key, "must be true or false")
	}
	return &b, nil
}

// QueryDate parses an optional YYYY-MM-DD value.
func QueryDate(q url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, core.Invalid(key, err)
	}
	return &d, nil
}

// QueryDateOrNil reads a date or ISO 8601 datetime and normalizes it to its
// UTC day. Absent and unparseable values both yield nil.
func QueryDateOrNil(q url.Values, key string) *core.Date {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	t, err := core.ParseDateTime(v)
	if err != nil {
		return nil
	}
	d := core.DateOf(t)
	return &d
}

// QueryDateTime parses an optional ISO 8601 timestamp.
func QueryDateTime(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := core.ParseDateTime(v)
	if err != nil {
		return nil, core.Invalid(key, err)
	}
	return &t, nil
}

// RequestParser collects the first error across several query parses so a
// handler can read all its filters and check once.
type RequestParser struct {
	q   url.Values
	err error
}

func NewRequestParser(r *http.Request) *RequestParser {
	return &RequestParser{q: r.URL.Query()}
}

func (p *RequestParser) String(key string) string { return QueryString(p.q, key) }

func (p *RequestParser) Int64(key string) *int64 {
	v, err := QueryInt64(p.q, key)
	p.keep(err)
	return v
}

func (p *RequestParser) Int(key string, def int) int {
	v, err := QueryInt(p.q, key, def)
	p.keep(err)
	return v
}

func (p *RequestParser) Bool(key string) *bool {
	v, err := QueryBool(p.q, key)
	p.keep(err)
	return v
}

func (p *RequestParser) Date(key string) *core.Date {
	v, err := QueryDate(p.q, key)
	p.keep(err)
	return v
}

// DateOrNil never records an error; callers fall back to their defaults.
func (p *RequestParser) DateOrNil(key string) *core.Date { return QueryDateOrNil(p.q, key) }

func (p *RequestParser) DateTime(key string) *time.Time {
	v, err := QueryDateTime(p.q, key)
	p.keep(err)
	return v
}

// Err returns the first parse error.
func (p *RequestParser) Err() error { return p.err }

func (p *RequestParser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}
