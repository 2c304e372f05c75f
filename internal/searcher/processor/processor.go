// Package processor turns ranked rows into the payload of each lookup type.
package processor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

const (
	MatchOpen  = "[match]"
	MatchClose = "[/match]"
	Ellipsis   = "…"

	DefaultSimilarityThreshold = 0.85
	DefaultAutocompletePadding = 3
)

// Ranker is the slice of ranker.Engine the processors read from.
type Ranker interface {
	Matches(ctx context.Context, req request.LookupRequest) ([]ranker.Row, error)
	Rank(ctx context.Context, req request.LookupRequest) ([]ranker.Row, error)
	Count(ctx context.Context, req request.LookupRequest) (map[string]int, error)
}

// Processor builds the response of one request type.
type Processor interface {
	Type() request.Type
	Process(ctx context.Context, req request.LookupRequest) (any, error)
}

// Set dispatches requests to the processor registered for their type.
type Set struct {
	procs map[request.Type]Processor
}

func NewSet(procs ...Processor) *Set {
	s := &Set{procs: make(map[request.Type]Processor, len(procs))}
	for _, p := range procs {
		s.procs[p.Type()] = p
	}
	return s
}

func (s *Set) Process(ctx context.Context, req request.LookupRequest) (any, error) {
	p, ok := s.procs[req.Type()]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrMissingAdapter, http.StatusNotImplemented,
			"no processor for %s lookups", req.Type())
	}
	out, err := p.Process(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", req.Type(), err)
	}
	return out, nil
}
