package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// remoteError mirrors the error half of the httputil envelope.
type remoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes resp.Body and converts a non-2xx
// response into an error. Enveloped errors keep their code and message as an
// AppError so callers can test them with errors.Is; anything else becomes a
// plain error carrying the raw body.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", remote, resp.StatusCode, err)
	}

	var re remoteError
	if json.Unmarshal(body, &re) != nil || re.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", remote, resp.StatusCode, string(body))
	}

	appErr := &apperrors.AppError{
		Code:    re.Error.Code,
		Message: fmt.Sprintf("%s: %s", remote, re.Error.Message),
		Status:  resp.StatusCode,
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		appErr.Err = apperrors.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		appErr.Err = apperrors.ErrConflict
	case resp.StatusCode == http.StatusServiceUnavailable:
		appErr.Err = apperrors.ErrServiceUnavail
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		appErr.Err = apperrors.ErrInvalidInput
	case re.Error.Code == "CONCURRENT_MODIFICATION":
		appErr.Err = apperrors.ErrConcurrencyAnomaly
	default:
		appErr.Err = apperrors.ErrInternal
	}
	return appErr
}
