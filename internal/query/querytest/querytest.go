// Package querytest provides a query.Handler driven by a queue of expected
// calls, for testing code that sits on top of the transport.
package querytest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/janoszen/dotrollcli/internal/query"
)

var ErrExpectationFailed = errors.New("expectation failed")

// Expectation describes one anticipated call and its canned response.
type Expectation struct {
	Verb query.Verb
	Path string
	Body any // compared by JSON encoding; nil for GET/DELETE

	StatusCode int
	Response   string // raw JSON
}

func (e Expectation) String() string {
	return fmt.Sprintf("%s %s", e.Verb, e.Path)
}

type ExpectationError struct {
	Verb query.Verb
	Path string

	// Exhausted is set when the call arrived with no expectation queued.
	Exhausted bool
	Diffs     []string
}

func (e *ExpectationError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("expectation failed: unexpected call %s %s: no expectations left", e.Verb, e.Path)
	}
	return fmt.Sprintf("expectation failed: call %s %s: %s", e.Verb, e.Path, strings.Join(e.Diffs, "; "))
}

func (e *ExpectationError) Is(target error) bool { return target == ErrExpectationFailed }

// Handler pops one Expectation per call, in the order they were added. The
// queue belongs to the instance.
type Handler struct {
	mu    sync.Mutex
	queue []Expectation
	seen  int
}

var _ query.Handler = (*Handler)(nil)

func New() *Handler {
	return &Handler{}
}

func (h *Handler) Expect(e Expectation) *Handler {
	h.mu.Lock()
	h.queue = append(h.queue, e)
	h.mu.Unlock()
	return h
}

func (h *Handler) ExpectGet(path string, status int, response string) *Handler {
	return h.Expect(Expectation{Verb: query.VerbGet, Path: path, StatusCode: status, Response: response})
}

func (h *Handler) Get(ctx context.Context, path string) (any, error) {
	return h.call(query.VerbGet, path, nil)
}

func (h *Handler) Delete(ctx context.Context, path string) (any, error) {
	return h.call(query.VerbDelete, path, nil)
}

func (h *Handler) Post(ctx context.Context, path string, body any) (any, error) {
	return h.call(query.VerbPost, path, body)
}

func (h *Handler) Put(ctx context.Context, path string, body any) (any, error) {
	return h.call(query.VerbPut, path, body)
}

func (h *Handler) Encode(value string) string {
	return query.Encode(value)
}

// Remaining reports how many expectations have not been consumed yet.
func (h *Handler) Remaining() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Verify returns an error listing the expectations that were never consumed.
func (h *Handler) Verify() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil
	}
	left := make([]string, 0, len(h.queue))
	for _, e := range h.queue {
		left = append(left, e.String())
	}
	return fmt.Errorf("%w: %d call(s) made, %d expectation(s) left: %s",
		ErrExpectationFailed, h.seen, len(h.queue), strings.Join(left, ", "))
}

func (h *Handler) AssertDone(t testing.TB) {
	t.Helper()
	if err := h.Verify(); err != nil {
		t.Fatal(err)
	}
}

func (h *Handler) call(verb query.Verb, path string, body any) (any, error) {
	e, err := h.pop(verb, path)
	if err != nil {
		return nil, err
	}

	var diffs []string
	if e.Verb != verb {
		diffs = append(diffs, fmt.Sprintf("verb: expected %s, got %s", e.Verb, verb))
	}
	if e.Path != path {
		diffs = append(diffs, fmt.Sprintf("path: expected %q, got %q", e.Path, path))
	}
	d, err := diffBody(e.Body, body)
	if err != nil {
		return nil, err
	}
	if d != "" {
		diffs = append(diffs, d)
	}
	if len(diffs) > 0 {
		return nil, &ExpectationError{Verb: verb, Path: path, Diffs: diffs}
	}

	return query.Complete(verb, path, e.StatusCode, []byte(e.Response))
}

func (h *Handler) pop(verb query.Verb, path string) (Expectation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return Expectation{}, &ExpectationError{Verb: verb, Path: path, Exhausted: true}
	}
	e := h.queue[0]
	h.queue = h.queue[1:]
	h.seen++
	return e, nil
}

func diffBody(expected, actual any) (string, error) {
	want, err := query.MarshalBody(expected)
	if err != nil {
		return "", fmt.Errorf("querytest: expected body: %w", err)
	}
	got, err := query.MarshalBody(actual)
	if err != nil {
		return "", err
	}
	if string(want) == string(got) {
		return "", nil
	}
	return fmt.Sprintf("body: expected %s, got %s", orNone(want), orNone(got)), nil
}

func orNone(b []byte) string {
	if b == nil {
		return "<none>"
	}
	return string(b)
}
