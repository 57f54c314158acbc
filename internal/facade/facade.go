// Package facade implements the Job Facade: the single entry point
// external callers use to submit a job spec and receive an adjudicated
// verdict, hiding Job construction, lifecycle driving, and cleanup.
package facade

import (
	"context"

	"go.uber.org/zap"

	"github.com/judgecore/judge/internal/errs"
	"github.com/judgecore/judge/internal/identity"
	"github.com/judgecore/judge/internal/job"
	"github.com/judgecore/judge/internal/sandbox"
	"github.com/judgecore/judge/internal/verdict"
)

// Facade submits job specs for execution, one Job per call.
type Facade struct {
	dataDir string
	pool    *identity.Pool
	invoker job.Invoker
	logger  *zap.Logger
}

// New builds a Facade. invoker is typically *sandbox.Invoker; pool
// allocates (uid, gid) pairs for each submitted job.
func New(dataDir string, pool *identity.Pool, invoker job.Invoker, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{dataDir: dataDir, pool: pool, invoker: invoker, logger: logger}
}

// Outcome is what a caller sees after a submission: the raw compile/run
// artefacts alongside the adjudicated verdict, mirroring the response
// shape callers expect to render.
type Outcome struct {
	Compile *sandbox.RunResult
	Run     []sandbox.RunResult
	Verdict verdict.Verdict
}

// Submit validates spec, runs a Job through prime, execute, and cleanup
// (cleanup always runs, even when execute fails), and returns the
// outcome. Structural failures are wrapped as ERROR verdicts rather than
// returned as Go errors, so callers can always respond with a verdict;
// the error return is reserved for failures that precede job
// construction (invalid spec).
func (f *Facade) Submit(ctx context.Context, spec job.Spec) (Outcome, error) {
	if err := spec.Validate(); err != nil {
		return Outcome{}, err
	}

	j, err := job.New(spec, f.dataDir, f.pool, f.invoker, f.logger)
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if err := j.Cleanup(); err != nil {
			f.logger.Error("job cleanup failed", zap.String("job_id", j.ID.String()), zap.Error(err))
		}
	}()

	if err := j.Prime(ctx); err != nil {
		f.logger.Error("job prime failed", zap.String("job_id", j.ID.String()), zap.Error(err))
		return Outcome{Verdict: verdict.Error(errorMessage(err))}, nil
	}

	result, err := j.Execute(ctx)
	if err != nil {
		f.logger.Error("job execute failed", zap.String("job_id", j.ID.String()), zap.Error(err))
		return Outcome{Verdict: verdict.Error(errorMessage(err))}, nil
	}

	if result.CompileFailed {
		return Outcome{Compile: result.Compile, Verdict: verdict.Compilation(compileMessage(result))}, nil
	}

	return Outcome{
		Compile: result.Compile,
		Run:     result.Run,
		Verdict: verdict.Adjudicate(result.Run, spec.Stdin, spec.ExpectedOutput),
	}, nil
}

func compileMessage(result job.Result) string {
	if result.Compile != nil && len(result.Compile.Stderr) > 0 {
		return string(result.Compile.Stderr)
	}
	return "compile failed"
}

func errorMessage(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return e.Error()
	}
	return err.Error()
}
