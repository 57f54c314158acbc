// Package model defines the HTTP wire types for the job submission
// endpoint and the conversions to/from the internal job and verdict
// types.
package model

import (
	"github.com/judgecore/judge/internal/facade"
	"github.com/judgecore/judge/internal/job"
	"github.com/judgecore/judge/internal/runtime"
	"github.com/judgecore/judge/internal/sandbox"
)

// File is one source file in a Request, bit-exact wire field names.
type File struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// Timeouts mirrors job.Timeouts over the wire, in milliseconds.
type Timeouts struct {
	Compile int `json:"compile"`
	Run     int `json:"run"`
}

// Request is the exact JSON body accepted by POST /jobs.
type Request struct {
	Language       string    `json:"language" binding:"required"`
	Version        string    `json:"version" binding:"required"`
	Files          []File    `json:"files" binding:"required,min=1"`
	Main           string    `json:"main" binding:"required"`
	Alias          string    `json:"alias"`
	Args           []string  `json:"args"`
	Stdin          []string  `json:"stdin"`
	ExpectedOutput *[]string `json:"expected_output"`
	Timeouts       Timeouts  `json:"timeouts"`
}

// Verdict is the wire shape of a verdict.Verdict.
type Verdict struct {
	Status         string  `json:"status"`
	Stdout         *string `json:"stdout,omitempty"`
	Stdin          *string `json:"stdin,omitempty"`
	ExpectedOutput *string `json:"expected_output,omitempty"`
}

// RunResult is the wire shape of a sandbox.RunResult.
type RunResult struct {
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`
	Stdin      string  `json:"stdin,omitempty"`
	ExitCode   *int    `json:"exit_code,omitempty"`
	Signal     *string `json:"signal,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

// Response is the body returned by POST /jobs.
type Response struct {
	Compile *RunResult  `json:"compile,omitempty"`
	Run     []RunResult `json:"run"`
	Verdict Verdict     `json:"verdict"`
}

// ConvertRequest resolves the request's (language, version) against the
// registry and builds an internal job.Spec, or returns a binding error
// when the runtime is unknown.
func ConvertRequest(req *Request, registry runtime.Registry) (job.Spec, error) {
	rt, ok := registry.Lookup(req.Language, req.Version)
	if !ok && req.Alias != "" {
		rt, ok = registry.LookupAlias(req.Alias)
	}
	if !ok {
		return job.Spec{}, unknownRuntimeError{language: req.Language, version: req.Version}
	}

	files := make([]job.FileSpec, len(req.Files))
	for i, f := range req.Files {
		files[i] = job.FileSpec{Name: f.Name, Content: []byte(f.Content)}
	}

	var expected []string
	if req.ExpectedOutput != nil {
		expected = *req.ExpectedOutput
	}

	return job.Spec{
		Runtime:        rt,
		Files:          files,
		Args:           req.Args,
		Stdin:          req.Stdin,
		ExpectedOutput: expected,
		Timeouts: job.Timeouts{
			CompileMs: req.Timeouts.Compile,
			RunMs:     req.Timeouts.Run,
		},
		Main:  req.Main,
		Alias: req.Alias,
	}, nil
}

type unknownRuntimeError struct {
	language, version string
}

func (e unknownRuntimeError) Error() string {
	return "unknown runtime " + e.language + "-" + e.version
}

// ConvertOutcome builds the wire Response from a facade.Outcome.
func ConvertOutcome(out facade.Outcome) Response {
	resp := Response{
		Verdict: Verdict{
			Status:         out.Verdict.Status.String(),
			Stdout:         out.Verdict.Stdout,
			Stdin:          out.Verdict.Stdin,
			ExpectedOutput: out.Verdict.ExpectedOutput,
		},
	}
	if out.Compile != nil {
		rr := convertRunResult(*out.Compile)
		resp.Compile = &rr
	}
	resp.Run = make([]RunResult, len(out.Run))
	for i, r := range out.Run {
		resp.Run[i] = convertRunResult(r)
	}
	return resp
}

func convertRunResult(r sandbox.RunResult) RunResult {
	return RunResult{
		Stdout:     string(r.Stdout),
		Stderr:     string(r.Stderr),
		Stdin:      string(r.Stdin),
		ExitCode:   r.ExitCode,
		Signal:     r.Signal,
		DurationMs: r.Duration.Milliseconds(),
	}
}
