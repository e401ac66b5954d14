package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 2048

// HTTPError is returned for every non-2xx response
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string // human readable message extracted from the body, if any
	Body       string
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	body = truncateUTF8(body, maxErrorBody)
	return &HTTPError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Detail:     errorDetail(body),
		Body:       string(body),
	}
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the status onto the error catalogue so callers can use errors.Is
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return errors.ErrValidation
	case http.StatusUnauthorized:
		return errors.ErrUnauthenticated
	case http.StatusForbidden:
		return errors.ErrForbidden
	case http.StatusNotFound:
		return errors.ErrNotFound
	}
	return nil
}

// StatusCode returns the HTTP status carried by err, or 0 for transport failures
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// errorDetail understands the backend's error shapes:
// {"detail": "..."}, {"error": "...", "details": [...]} and field maps.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return ""
	}

	if d := res.Get("detail"); d.Type == gjson.String {
		return d.String()
	}

	if e := res.Get("error"); e.Type == gjson.String {
		var details []string
		for _, d := range res.Get("details").Array() {
			details = append(details, d.String())
		}
		if len(details) == 0 {
			return e.String()
		}
		return e.String() + ": " + strings.Join(details, "; ")
	}

	var fields []string
	res.ForEach(func(key, value gjson.Result) bool {
		var msgs []string
		if value.IsArray() {
			for _, m := range value.Array() {
				msgs = append(msgs, m.String())
			}
		} else {
			msgs = append(msgs, value.String())
		}
		fields = append(fields, key.String()+": "+strings.Join(msgs, " "))
		return true
	})
	return strings.Join(fields, "; ")
}

// truncateUTF8 cuts body to at most limit bytes without splitting a UTF-8 sequence
func truncateUTF8(body []byte, limit int) []byte {
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && cut > limit-utf8.UTFMax && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
