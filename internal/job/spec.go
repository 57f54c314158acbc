package job

import (
	"path/filepath"
	"strings"

	"github.com/judgecore/judge/internal/errs"
	"github.com/judgecore/judge/internal/runtime"
)

// FileSpec is one source file supplied by the caller.
type FileSpec struct {
	Name    string
	Content []byte
}

// Timeouts bounds the compile and run phases, in milliseconds.
// CompileMs is ignored when the runtime is not compiled.
type Timeouts struct {
	CompileMs int
	RunMs     int
}

// Spec is the caller-supplied description of a submission.
type Spec struct {
	Runtime        runtime.Runtime
	Files          []FileSpec
	Args           []string
	Stdin          []string
	ExpectedOutput []string // nil means "not supplied"
	Timeouts       Timeouts
	Main           string
	Alias          string
}

// Validate checks the invariants required before a Job may be constructed:
// at least one file, main present among the files, no file name escaping
// the workspace, and stdin/expected_output length parity when
// expected_output is supplied.
func (s Spec) Validate() error {
	if len(s.Files) == 0 {
		return errs.Newf(errs.InvalidSpec, "at least one file is required")
	}

	found := false
	for _, f := range s.Files {
		if err := validateFileName(f.Name); err != nil {
			return err
		}
		if f.Name == s.Main {
			found = true
		}
	}
	if !found {
		return errs.Newf(errs.InvalidSpec, "main %q is not among the supplied files", s.Main)
	}

	if s.ExpectedOutput != nil && len(s.ExpectedOutput) != len(s.Stdin) {
		return errs.Newf(errs.InvalidSpec, "expected_output length (%d) must match stdin length (%d)", len(s.ExpectedOutput), len(s.Stdin))
	}

	return nil
}

func validateFileName(name string) error {
	if name == "" {
		return errs.Newf(errs.InvalidSpec, "file name must not be empty")
	}
	if filepath.IsAbs(name) {
		return errs.Newf(errs.InvalidSpec, "file name %q must not be an absolute path", name)
	}
	clean := filepath.Clean(name)
	for _, part := range strings.Split(clean, string(filepath.Separator)) {
		if part == ".." {
			return errs.Newf(errs.InvalidSpec, "file name %q must not escape the workspace", name)
		}
	}
	return nil
}
