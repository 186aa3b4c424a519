package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrRejected matches every *Error: the backend answered, but refused.
	ErrRejected = errors.New("request rejected by backend")

	// ErrUnreachable is wrapped by errors from requests that got no answer.
	ErrUnreachable = errors.New("backend unreachable")
)

// Error is a failure reported by the backend, either a non-2xx status or a
// body carrying success=false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrRejected
}

// UserMessage returns the message the backend gave for err, or fallback when
// it gave none.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// decodeEnvelope reads a {success, message, ...} response into v.
// env must point into v so the envelope fields are filled by the same decode.
func decodeEnvelope(resp *http.Response, v interface{}, env *envelope) error {
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return errorFromBody(resp.StatusCode, buf)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %s", err)}
	}
	if !env.Success {
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return nil
}

// decodePlain reads a response that is not wrapped in an envelope.
// A nil v discards the body of a successful response.
func decodePlain[T any](resp *http.Response, v *T) error {
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return errorFromBody(resp.StatusCode, buf)
	}
	if v == nil || len(buf) == 0 {
		return nil
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %s", err)}
	}
	return nil
}

func errorFromBody(status int, buf []byte) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(buf, &body); err == nil {
		if body.Message != "" {
			return &Error{StatusCode: status, Message: body.Message}
		}
		if body.Error != "" {
			return &Error{StatusCode: status, Message: body.Error}
		}
	}
	return &Error{StatusCode: status}
}
