// Package errors provides error types shared by the upstream client and the
// HTTP handlers.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4 << 10

// HTTPError is a non-2xx response from a remote API.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%s): %s", e.Status, e.Message)
	}
	return "HTTP error: " + e.Status
}

// ParseHTTPError turns a non-2xx response into an *HTTPError, extracting an
// {"error": ...} or {"message": ...} field when the body is JSON.
// It returns nil for 2xx responses and does not close the body.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     status,
			Message:    fmt.Sprintf("read error response body: %v", err),
		}
	}

	body := strings.TrimSpace(string(bodyBytes))

	msg := ""
	if gjson.ValidBytes(bodyBytes) {
		msg = gjson.GetBytes(bodyBytes, "error").String()
		if msg == "" {
			msg = gjson.GetBytes(bodyBytes, "message").String()
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       body,
		Message:    msg,
	}
}

// GetHTTPStatusCode extracts the status code from an *HTTPError anywhere in
// err's chain.
func GetHTTPStatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
