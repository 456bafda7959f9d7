package store

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"docsnap/internal/docsnap"
)

// ErrUnauthorized is returned when the store rejects the configured token.
var ErrUnauthorized = errors.New("store rejected credentials")

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chroma http %d: %s", e.Status, e.Message)
}

// mapHTTPError turns a non-2xx response into an error. Chroma reports a
// missing collection either as 404 or, on older servers, as a 4xx/5xx with a
// "does not exist" message; both map to ErrCollectionNotFound.
func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	apiErr := &APIError{Status: resp.StatusCode(), Message: body}

	lower := strings.ToLower(body)
	switch {
	case resp.StatusCode() == http.StatusNotFound,
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "notfounderror"):
		return fmt.Errorf("%w: %w", docsnap.ErrCollectionNotFound, apiErr)
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	default:
		return apiErr
	}
}
