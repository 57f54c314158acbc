package model

import (
	"context"
	"testing"
	"time"

	"github.com/judgecore/judge/internal/facade"
	"github.com/judgecore/judge/internal/runtime"
	"github.com/judgecore/judge/internal/sandbox"
	"github.com/judgecore/judge/internal/verdict"
)

type fakeRegistry struct {
	byKey   map[string]runtime.Runtime
	byAlias map[string]runtime.Runtime
}

func (f *fakeRegistry) All() []runtime.Runtime { return nil }
func (f *fakeRegistry) Lookup(language, version string) (runtime.Runtime, bool) {
	rt, ok := f.byKey[language+"/"+version]
	return rt, ok
}
func (f *fakeRegistry) LookupAlias(alias string) (runtime.Runtime, bool) {
	rt, ok := f.byAlias[alias]
	return rt, ok
}
func (f *fakeRegistry) Refresh(context.Context) error { return nil }

func TestConvertRequestResolvesByLanguageVersion(t *testing.T) {
	reg := &fakeRegistry{byKey: map[string]runtime.Runtime{
		"python/3.10.0": {Language: "python", Version: "3.10.0"},
	}}
	req := &Request{
		Language: "python",
		Version:  "3.10.0",
		Files:    []File{{Name: "main.py", Content: "print(1)"}},
		Main:     "main.py",
	}
	spec, err := ConvertRequest(req, reg)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Runtime.Language != "python" {
		t.Fatalf("runtime = %+v", spec.Runtime)
	}
	if len(spec.Files) != 1 || spec.Files[0].Name != "main.py" {
		t.Fatalf("files = %+v", spec.Files)
	}
}

func TestConvertRequestFallsBackToAlias(t *testing.T) {
	reg := &fakeRegistry{byAlias: map[string]runtime.Runtime{
		"py3": {Language: "python", Version: "3.10.0"},
	}}
	req := &Request{Language: "nonexistent", Version: "0", Alias: "py3", Files: []File{{Name: "a.py"}}, Main: "a.py"}
	spec, err := ConvertRequest(req, reg)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Runtime.Version != "3.10.0" {
		t.Fatalf("runtime = %+v", spec.Runtime)
	}
}

func TestConvertRequestUnknownRuntimeErrors(t *testing.T) {
	reg := &fakeRegistry{}
	req := &Request{Language: "cobol", Version: "1", Files: []File{{Name: "a"}}, Main: "a"}
	if _, err := ConvertRequest(req, reg); err == nil {
		t.Fatal("expected error for unknown runtime")
	}
}

func TestConvertRequestExpectedOutputNilWhenOmitted(t *testing.T) {
	reg := &fakeRegistry{byKey: map[string]runtime.Runtime{"python/3.10.0": {Language: "python", Version: "3.10.0"}}}
	req := &Request{Language: "python", Version: "3.10.0", Files: []File{{Name: "a.py"}}, Main: "a.py"}
	spec, err := ConvertRequest(req, reg)
	if err != nil {
		t.Fatal(err)
	}
	if spec.ExpectedOutput != nil {
		t.Fatalf("expected nil ExpectedOutput, got %v", spec.ExpectedOutput)
	}
}

func TestConvertOutcomeIncludesRunAndVerdict(t *testing.T) {
	zero := 0
	out := facade.Outcome{
		Run:     []sandbox.RunResult{{Stdout: []byte("hi"), ExitCode: &zero}},
		Verdict: verdict.Verdict{Status: verdict.AC},
	}
	resp := ConvertOutcome(out)
	if resp.Verdict.Status != "AC" {
		t.Fatalf("status = %q, want AC", resp.Verdict.Status)
	}
	if len(resp.Run) != 1 || resp.Run[0].Stdout != "hi" {
		t.Fatalf("run = %+v", resp.Run)
	}
	if resp.Compile != nil {
		t.Fatalf("expected nil compile, got %+v", resp.Compile)
	}
}

func TestConvertOutcomeSurfacesStdinAndDuration(t *testing.T) {
	out := facade.Outcome{
		Run: []sandbox.RunResult{{
			Stdout:   []byte("hi"),
			Stdin:    []byte("in"),
			Duration: 250 * time.Millisecond,
		}},
		Verdict: verdict.Verdict{Status: verdict.AC},
	}
	resp := ConvertOutcome(out)
	if len(resp.Run) != 1 {
		t.Fatalf("run = %+v", resp.Run)
	}
	if resp.Run[0].Stdin != "in" {
		t.Fatalf("stdin = %q, want in", resp.Run[0].Stdin)
	}
	if resp.Run[0].DurationMs != 250 {
		t.Fatalf("duration_ms = %d, want 250", resp.Run[0].DurationMs)
	}
}

func TestConvertOutcomeIncludesCompileWhenPresent(t *testing.T) {
	out := facade.Outcome{
		Compile: &sandbox.RunResult{Stderr: []byte("boom")},
		Verdict: verdict.Verdict{Status: verdict.COMPILATION},
	}
	resp := ConvertOutcome(out)
	if resp.Compile == nil || resp.Compile.Stderr != "boom" {
		t.Fatalf("compile = %+v", resp.Compile)
	}
}
