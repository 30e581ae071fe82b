// Package query defines the transport contract used by the registrar actions:
// a single HTTP verb against a path relative to a configured API endpoint,
// returning the decoded JSON response body.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

type Verb string

const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbDelete Verb = http.MethodDelete
)

// Handler performs one request per call and returns the decoded JSON body.
// Implementations must reject status codes outside AcceptedStatus(verb) with a
// *FailedError.
type Handler interface {
	Get(ctx context.Context, path string) (any, error)
	Delete(ctx context.Context, path string) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
	Put(ctx context.Context, path string, body any) (any, error)

	// Encode escapes value for use as a single path segment.
	Encode(value string) string
}

var ErrQueryFailed = errors.New("query failed")

type FailedError struct {
	Verb       Verb
	Path       string
	StatusCode int
	Body       string
	Err        error // decode error, if the status was accepted
}

func (e *FailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query failed: %s %s: %v", e.Verb, e.Path, e.Err)
	}
	msg := fmt.Sprintf("query failed: %s %s: http %d (want %s)", e.Verb, e.Path, e.StatusCode, formatCodes(AcceptedStatus(e.Verb)))
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + truncate(body, 200)
	}
	return msg
}

func (e *FailedError) Unwrap() error { return e.Err }

func (e *FailedError) Is(target error) bool { return target == ErrQueryFailed }

// AcceptedStatus returns the status codes that count as success for verb.
func AcceptedStatus(verb Verb) []int {
	switch verb {
	case VerbGet, VerbDelete:
		return []int{http.StatusOK}
	case VerbPost:
		return []int{http.StatusCreated}
	case VerbPut:
		return []int{http.StatusOK, http.StatusCreated, http.StatusNoContent}
	default:
		return nil
	}
}

func CheckStatus(verb Verb, path string, status int, body []byte) error {
	if slices.Contains(AcceptedStatus(verb), status) {
		return nil
	}
	return &FailedError{Verb: verb, Path: path, StatusCode: status, Body: string(body)}
}

// Complete applies the success check for verb and decodes body. An empty body
// on an accepted status decodes to nil.
func Complete(verb Verb, path string, status int, body []byte) (any, error) {
	if err := CheckStatus(verb, path, status, body); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &FailedError{
			Verb:       verb,
			Path:       path,
			StatusCode: status,
			Body:       string(body),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return decoded, nil
}

func Encode(value string) string {
	return url.PathEscape(value)
}

// MarshalBody encodes a request body. Map keys come out sorted, so two equal
// values always encode to the same bytes.
func MarshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

func formatCodes(codes []int) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	return strings.Join(parts, "|")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
