package backend

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/index"
)

// ErrorCategory is one bucket of a ParseErrorSummary: how often a class of
// error occurred and the first instance seen.
type ErrorCategory struct {
	Name  string
	Count int
	First error
}

// ParseErrorSummary collects record-scoped failures during a bulk read so a
// caller can keep going and report totals afterwards. Safe for concurrent
// use.
type ParseErrorSummary struct {
	mu         sync.Mutex
	categories map[string]*ErrorCategory
	order      []string
	total      int
}

// NewParseErrorSummary returns an empty collector.
func NewParseErrorSummary() *ParseErrorSummary {
	return &ParseErrorSummary{categories: make(map[string]*ErrorCategory)}
}

// Record files an error under its category. Nil errors are ignored.
func (s *ParseErrorSummary) Record(err error) {
	if err == nil {
		return
	}

	name := categorize(err)

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.categories[name]
	if !ok {
		cat = &ErrorCategory{Name: name, First: err}
		s.categories[name] = cat
		s.order = append(s.order, name)
	}

	cat.Count++
	s.total++
}

// Total returns the number of errors recorded.
func (s *ParseErrorSummary) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total
}

// Categories returns the buckets in first-seen order.
func (s *ParseErrorSummary) Categories() []ErrorCategory {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ErrorCategory, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.categories[name])
	}

	return out
}

// String renders a one-line-per-category report.
func (s *ParseErrorSummary) String() string {
	cats := s.Categories()
	if len(cats) == 0 {
		return "no parse errors"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d parse errors:", s.Total())

	for _, cat := range cats {
		fmt.Fprintf(&b, "\n  %s: %d (first: %v)", cat.Name, cat.Count, cat.First)
	}

	return b.String()
}

func categorize(err error) string {
	var (
		attrErr   *ErrMalformedAttributeLine
		peakErr   *ErrMalformedPeakLine
		buildErr  *ErrIndexBuild
		annErr    *annotation.ErrInvalidAnnotation
		auxErr    *annotation.ErrMalformedAuxiliary
		dupNumErr *index.ErrDuplicateNumber
	)

	switch {
	case errors.As(err, &attrErr):
		return "malformed attribute line"
	case errors.As(err, &peakErr):
		return "malformed peak line"
	case errors.As(err, &buildErr):
		return "index build failure"
	case errors.As(err, &annErr), errors.As(err, &auxErr):
		return "invalid annotation"
	case errors.As(err, &dupNumErr):
		return "duplicate record number"
	case errors.Is(err, index.ErrNotFound):
		return "record not found"
	case errors.Is(err, ErrUnknownFormat):
		return "unknown format"
	default:
		return "other"
	}
}
