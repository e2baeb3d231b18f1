package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/nsetinspect/internal/model"
)

// Step is one stage of a registry inspection. Steps share a single
// *model.Inspection; later steps read what earlier ones filled in.
type Step interface {
	// Do runs the stage. A returned error fails the inspection; problems
	// that should not fail it are logged and Do returns nil.
	Do(ctx context.Context, inspection *model.Inspection) error

	// Name identifies the step in logs and in Inspection.PerformedSteps.
	Name() string
}

// StepError reports the step that failed an inspection.
type StepError struct {
	// Step is the failing step's name.
	Step string

	// Err is the error returned by the step.
	Err error
}

// Error implements error.
func (e *StepError) Error() string {
	return e.Step + " step: " + e.Err.Error()
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs steps in order against one inspection.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after one fails.
// The last failure is still stored in the inspection.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in the given order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against inspection.
//
// Cancellation is checked between steps; a step already running is expected
// to watch ctx itself. A cancelled run sets inspection.Cancelled and returns
// the context error. A failing step is wrapped in a *StepError and stored in
// inspection.Error; unless continueOnError is set, that error is returned
// and the remaining steps are skipped.
func (p *Pipeline) Execute(ctx context.Context, inspection *model.Inspection) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("inspection cancelled",
				"registry", inspection.RegistryPath,
				"next_step", step.Name(),
				"reason", context.Cause(ctx),
			)
			inspection.Cancelled = true
			return err
		}

		if err := p.run(ctx, step, inspection); err != nil && !p.continueOnError {
			return err
		}
	}
	return nil
}

// run executes a single step and records its outcome on inspection.
func (p *Pipeline) run(ctx context.Context, step Step, inspection *model.Inspection) error {
	logger := p.logger.With("step", step.Name(), "registry", inspection.RegistryPath)
	start := time.Now()

	if err := step.Do(ctx, inspection); err != nil {
		stepErr := &StepError{Step: step.Name(), Err: err}
		logger.Error("step failed", "error", err, "elapsed", time.Since(start))

		inspection.Error = stepErr
		inspection.ErrorMessage = stepErr.Error()
		if !p.continueOnError {
			return stepErr
		}
	} else {
		logger.Debug("step done", "elapsed", time.Since(start))
	}

	inspection.PerformedSteps = append(inspection.PerformedSteps, step.Name())
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
