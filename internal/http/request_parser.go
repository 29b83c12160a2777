// Package http provides HTTP server and handler implementations.
//
// This file implements request decoding: JSON bodies for writes and
// query parameters for the month summary.

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

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// malformedBodyError is returned for bodies that are not a JSON object of the
// expected shape. Field level problems are core validation errors instead.
type malformedBodyError struct {
	msg    string
	status int
}

func (e *malformedBodyError) Error() string { return e.msg }

func malformed(format string, args ...any) error {
	return &malformedBodyError{msg: fmt.Sprintf(format, args...), status: http.StatusBadRequest}
}

// DecodeDraft reads a transaction payload from the request body.
func DecodeDraft(w http.ResponseWriter, r *http.Request) (core.Draft, error) {
	var d core.Draft

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&d); err != nil {
		var tooLarge *http.MaxBytesError
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, core.ErrValidation):
			return core.Draft{}, err
		case errors.As(err, &tooLarge):
			return core.Draft{}, &malformedBodyError{
				msg:    fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit),
				status: http.StatusRequestEntityTooLarge,
			}
		case errors.Is(err, io.EOF):
			return core.Draft{}, malformed("request body is required")
		case errors.As(err, &syntax):
			return core.Draft{}, malformed("invalid JSON at offset %d", syntax.Offset)
		case errors.As(err, &typeErr):
			return core.Draft{}, malformed("invalid value for field %q", typeErr.Field)
		default:
			return core.Draft{}, malformed("invalid JSON body")
		}
	}
	if dec.More() {
		return core.Draft{}, malformed("request body must contain a single JSON object")
	}

	d.Category = sanitizeInput(d.Category)
	d.Note = sanitizeInput(d.Note)
	return d, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using now
// for whichever is missing.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, &core.ValidationError{Field: "year", Reason: "must be a valid year"}
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
		}
		params.Month = m
	}

	return params, nil
}

// ParseSummaryQuery builds a month query from the summary endpoint's
// parameters: year, month, view (income|expense) and category.
func ParseSummaryQuery(query url.Values, now time.Time) (services.MonthQuery, error) {
	month, err := ParseMonthParams(query, now)
	if err != nil {
		return services.MonthQuery{}, err
	}

	view := core.TypeExpense
	if v := strings.TrimSpace(query.Get("view")); v != "" {
		view = core.Type(strings.ToLower(v))
		if !view.Valid() {
			return services.MonthQuery{}, &core.ValidationError{Field: "view", Reason: "must be income or expense"}
		}
	}

	return services.MonthQuery{
		Year:     month.Year,
		Month:    time.Month(month.Month),
		View:     view,
		Category: strings.TrimSpace(query.Get("category")),
	}, nil
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
