package processor

import (
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
)

// TotalKey holds the sum of all tag counts.
const TotalKey = "_total"

type CountProcessor struct {
	ranker Ranker
}

func NewCounts(r Ranker) *CountProcessor {
	return &CountProcessor{ranker: r}
}

func (p *CountProcessor) Type() request.Type { return request.SearchCount }

func (p *CountProcessor) Process(ctx context.Context, req request.LookupRequest) (any, error) {
	return p.Counts(ctx, req)
}

func (p *CountProcessor) Counts(ctx context.Context, req request.LookupRequest) (map[string]int, error) {
	counts, err := p.ranker.Count(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts)+1)
	total := 0
	for tag, n := range counts {
		out[tag] = n
		total += n
	}
	out[TotalKey] = total
	return out, nil
}

// TagSource lists the tags of the active generation.
type TagSource interface {
	DistinctTags(ctx context.Context, sc store.Scope) ([]string, error)
}

type TagsProcessor struct {
	tags TagSource
}

func NewTags(tags TagSource) *TagsProcessor {
	return &TagsProcessor{tags: tags}
}

func (p *TagsProcessor) Type() request.Type { return request.Tags }

func (p *TagsProcessor) Process(ctx context.Context, req request.LookupRequest) (any, error) {
	return p.Tags(ctx, req)
}

// Tags maps every indexed tag to its labels, limited to the tag filter
// when one is set.
func (p *TagsProcessor) Tags(ctx context.Context, req request.LookupRequest) (map[string]domain.TagLabel, error) {
	tags, err := p.tags.DistinctTags(ctx, req.Scope())
	if err != nil {
		return nil, err
	}
	filter := req.TagFilter()
	out := make(map[string]domain.TagLabel, len(tags))
	for _, t := range tags {
		if len(filter) > 0 && !slices.Contains(filter, t) {
			continue
		}
		out[t] = req.Domain().TagLabel(t)
	}
	return out, nil
}
