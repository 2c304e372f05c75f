package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultLoopGuard = 10000

// Continuation descends into the next stage with req.
type Continuation func(ctx context.Context, req Request)

// Stage is one level of the pipeline.
type Stage interface {
	Name() string
	Items(ctx context.Context, req Request) ([]any, error)
	Handle(ctx context.Context, item any, req Request, next Continuation) error
}

// Finisher is implemented by stages that post-process once all items of a
// call to Items have been handled.
type Finisher interface {
	Finish(ctx context.Context, req Request) error
}

// ItemError is one failure recorded during a run.
type ItemError struct {
	Stage         string
	Site          string
	Language      string
	RecordIndexer string
	Err           error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("stage %s (site=%q language=%q indexer=%q): %v",
		e.Stage, e.Site, e.Language, e.RecordIndexer, e.Err)
}

// Report summarises a run. Errors never abort the run; they are collected
// here.
type Report struct {
	Domain   string
	Nodes    int
	Words    int
	Failed   int
	Errors   []ItemError
	Started  time.Time
	Duration time.Duration
}

// OK reports whether the run finished without any recorded error.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Runner drives the stages depth first.
type Runner struct {
	stages    []Stage
	loopGuard int
	logger    *slog.Logger
}

type RunnerOption func(*Runner)

// WithLoopGuard caps the number of items handled per Items call.
func WithLoopGuard(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.loopGuard = n
		}
	}
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(stages []Stage, opts ...RunnerOption) *Runner {
	r := &Runner{
		stages:    stages,
		loopGuard: DefaultLoopGuard,
		logger:    slog.Default().With("component", "index-queue"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run walks every stage for req and returns the collected report.
func (r *Runner) Run(ctx context.Context, req Request) Report {
	report := Report{Started: time.Now()}
	if d, err := req.Domain(); err == nil {
		report.Domain = d.Name
	}
	r.run(ctx, 0, req, &report)
	report.Duration = time.Since(report.Started)
	return report
}

func (r *Runner) run(ctx context.Context, depth int, req Request, report *Report) {
	if depth >= len(r.stages) {
		return
	}
	stage := r.stages[depth]
	items, err := stage.Items(ctx, req)
	if err != nil {
		r.fail(report, stage, req, fmt.Errorf("providing items: %w", err))
		return
	}
	next := func(ctx context.Context, child Request) {
		r.run(ctx, depth+1, child, report)
	}
	for i, item := range items {
		if i >= r.loopGuard {
			r.fail(report, stage, req, fmt.Errorf("loop guard hit after %d items", r.loopGuard))
			break
		}
		if err := ctx.Err(); err != nil {
			r.fail(report, stage, req, err)
			return
		}
		r.handle(ctx, stage, item, req, next, report)
	}
	if f, ok := stage.(Finisher); ok {
		if err := f.Finish(ctx, req); err != nil {
			r.fail(report, stage, req, fmt.Errorf("finishing: %w", err))
		}
	}
}

func (r *Runner) handle(ctx context.Context, stage Stage, item any, req Request, next Continuation, report *Report) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(report, stage, req, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := stage.Handle(ctx, item, req, next); err != nil {
		r.fail(report, stage, req, err)
	}
}

func (r *Runner) fail(report *Report, stage Stage, req Request, err error) {
	ie := ItemError{Stage: stage.Name(), Err: err}
	if s, e := req.Site(); e == nil {
		ie.Site = s.ID
	}
	if l, e := req.Language(); e == nil {
		ie.Language = l
	}
	if idx, e := req.RecordIndexer(); e == nil {
		ie.RecordIndexer = idx.Name()
	}
	report.Errors = append(report.Errors, ie)
	report.Failed++
	attrs := append([]any{"stage", stage.Name()}, req.LogAttrs()...)
	r.logger.Error("indexing item failed", append(attrs, "error", err)...)
}
