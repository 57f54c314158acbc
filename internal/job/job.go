// Package job implements the Job lifecycle engine: identity allocation,
// workspace provisioning, compile + N run orchestration, dispatch
// policy, and cleanup. Grounded in envexec/single.go and envexec/group.go
// for the single-vs-parallel split and worker/worker.go's
// workDoSingle/workDoGroup for where that split is decided.
package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/judgecore/judge/internal/errs"
	"github.com/judgecore/judge/internal/identity"
	"github.com/judgecore/judge/internal/sandbox"
)

// State is a Job's position in its Ready -> Primed -> Executed lifecycle.
type State int

const (
	Ready State = iota
	Primed
	Executed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Primed:
		return "Primed"
	case Executed:
		return "Executed"
	default:
		return "Unknown"
	}
}

const javaSuffixLen = len(".java")

// Invoker is the Sandbox Invoker contract Job depends on. *sandbox.Invoker
// satisfies it; tests substitute a fake.
type Invoker interface {
	SafeCall(ctx context.Context, exePath string, argv []string, timeout time.Duration, stdin []byte, env []string, cwd string, uid, gid int, alias string) (sandbox.RunResult, error)
}

// Result is the raw output of the execute phase, before adjudication.
type Result struct {
	// Compile is non-nil only when the runtime is compiled.
	Compile *sandbox.RunResult
	// CompileFailed is true when the compile phase's result should
	// short-circuit the job with a COMPILATION verdict.
	CompileFailed bool
	// Run holds one RunResult per stdin payload, present only when the
	// compile phase did not fail.
	Run []sandbox.RunResult
}

// Job owns a single submission's lifecycle. Its state transitions are
// not reentrant: a Job must be driven single-threaded by its owning
// caller (internal parallelism happens only across test-case
// invocations within Execute, never across lifecycle transitions).
type Job struct {
	ID      uuid.UUID
	UID     int
	GID     int
	WorkDir string

	spec    Spec
	invoker Invoker
	logger  *zap.Logger

	state State
}

// New validates spec and constructs a Job in the Ready state, allocating
// a fresh UUID and a (uid, gid) pair from pool. No filesystem or process
// work happens until Prime / Execute are called.
func New(spec Spec, dataDir string, pool *identity.Pool, invoker Invoker, logger *zap.Logger) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	uid, gid := pool.Allocate()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		ID:      id,
		UID:     uid,
		GID:     gid,
		WorkDir: filepath.Join(dataDir, "jobs", id.String()),
		spec:    spec,
		invoker: invoker,
		logger:  logger,
		state:   Ready,
	}, nil
}

// Prime materializes the workspace directory and every supplied file on
// disk, owned by the Job's (uid, gid) with directory mode 0o700. Legal
// only from Ready.
func (j *Job) Prime(ctx context.Context) error {
	if j.state != Ready {
		return errs.Newf(errs.InvalidState, "prime is only valid from Ready, got %s", j.state)
	}

	if err := os.MkdirAll(j.WorkDir, 0o700); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	if err := chown(j.WorkDir, j.UID, j.GID); err != nil {
		return errs.New(errs.Filesystem, err)
	}

	for _, f := range j.spec.Files {
		if ctx.Err() != nil {
			return errs.New(errs.Filesystem, ctx.Err())
		}
		path := filepath.Join(j.WorkDir, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return errs.New(errs.Filesystem, err)
		}
		if err := chownTree(j.WorkDir, filepath.Dir(path), j.UID, j.GID); err != nil {
			return errs.New(errs.Filesystem, err)
		}
		if err := os.WriteFile(path, f.Content, 0o700); err != nil {
			return errs.New(errs.Filesystem, err)
		}
		if err := chown(path, j.UID, j.GID); err != nil {
			return errs.New(errs.Filesystem, err)
		}
	}

	j.state = Primed
	j.logger.Debug("job primed", zap.String("job_id", j.ID.String()), zap.String("workdir", j.WorkDir))
	return nil
}

// Execute runs the compile phase (if the runtime requires it) followed
// by one invocation per stdin payload, dispatched serially for java and
// in parallel otherwise. Legal only from Primed.
func (j *Job) Execute(ctx context.Context) (Result, error) {
	if j.state != Primed {
		return Result{}, errs.Newf(errs.InvalidState, "execute is only valid from Primed, got %s", j.state)
	}

	var result Result

	rt := j.spec.Runtime
	if rt.Compiled {
		argv := make([]string, len(j.spec.Files))
		for i, f := range j.spec.Files {
			argv[i] = f.Name
		}
		compileTimeout := msToDuration(j.spec.Timeouts.CompileMs)
		compileRes, err := j.invoker.SafeCall(ctx, rt.CompilePath(), argv, compileTimeout, nil, envSlice(rt.EnvVars), j.WorkDir, j.UID, j.GID, j.spec.Alias)
		if err != nil {
			return Result{}, err
		}
		result.Compile = &compileRes

		if len(compileRes.Stderr) > 0 || (compileRes.Signal != nil && *compileRes.Signal == "SIGKILL") {
			result.CompileFailed = true
			j.state = Executed
			return result, nil
		}
	}

	main := j.spec.Main
	if rt.Language == "java" && rt.Compiled && len(main) >= javaSuffixLen {
		main = main[:len(main)-javaSuffixLen]
	}

	runs := make([]sandbox.RunResult, len(j.spec.Stdin))
	runTimeout := msToDuration(j.spec.Timeouts.RunMs)
	argv := append([]string{main}, rt.ExtraArgs...)
	argv = append(argv, j.spec.Args...)
	env := envSlice(rt.EnvVars)

	invoke := func(i int) error {
		res, err := j.invoker.SafeCall(ctx, rt.RunPath(), argv, runTimeout, []byte(j.spec.Stdin[i]), env, j.WorkDir, j.UID, j.GID, j.spec.Alias)
		if err != nil {
			return err
		}
		runs[i] = res
		return nil
	}

	if rt.Language == "java" {
		// Java compilation emits shared on-disk class files in the
		// workspace; concurrent invocations may race on the JVM's
		// working set, so runs are strictly serial.
		for i := range j.spec.Stdin {
			if err := invoke(i); err != nil {
				return Result{}, err
			}
		}
	} else {
		var g errgroup.Group
		for i := range j.spec.Stdin {
			i := i
			g.Go(func() error { return invoke(i) })
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	result.Run = runs
	j.state = Executed
	return result, nil
}

// Cleanup removes the workspace recursively. Idempotent and legal from
// any state; missing paths are not an error.
func (j *Job) Cleanup() error {
	if err := os.RemoveAll(j.WorkDir); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	return nil
}

// State reports the Job's current lifecycle state.
func (j *Job) State() State { return j.state }

// chownTree chowns every directory component between base and dir,
// inclusive of dir. base itself is assumed already owned. A FileSpec
// name such as "pkg/util.py" creates an intermediate "pkg" directory
// that MkdirAll leaves owned by the calling process; without this the
// job uid can't traverse into it.
func chownTree(base, dir string, uid, gid int) error {
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." {
		return nil
	}
	cur := base
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if err := chown(cur, uid, gid); err != nil {
			return err
		}
	}
	return nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func envSlice(vars map[string]string) []string {
	if len(vars) == 0 {
		return nil
	}
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
