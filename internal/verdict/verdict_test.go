package verdict

import (
	"testing"

	"github.com/judgecore/judge/internal/sandbox"
)

func strp(s string) *string { return &s }

func TestAdjudicateACSingleTest(t *testing.T) {
	run := []sandbox.RunResult{{Stdout: []byte("hi")}}
	v := Adjudicate(run, []string{"hi"}, []string{"hi"})
	if v.Status != AC {
		t.Fatalf("status = %v, want AC", v.Status)
	}
	if v.Stdout == nil || *v.Stdout != "hi" {
		t.Fatalf("stdout = %v, want hi", v.Stdout)
	}
	if v.Stdin == nil || *v.Stdin != "hi" {
		t.Fatalf("stdin = %v, want hi", v.Stdin)
	}
	if v.ExpectedOutput != nil {
		t.Fatalf("expected_output = %v, want nil", *v.ExpectedOutput)
	}
}

func TestAdjudicateTrimsBothSidesForWA(t *testing.T) {
	run := []sandbox.RunResult{{Stdout: []byte("hi\n")}}
	v := Adjudicate(run, []string{"hi"}, []string{"hi"})
	if v.Status != AC {
		t.Fatalf("status = %v, want AC (trimmed match)", v.Status)
	}

	v = Adjudicate(run, []string{"hi"}, []string{"ho"})
	if v.Status != WA {
		t.Fatalf("status = %v, want WA", v.Status)
	}
	if *v.Stdout != "hi" || *v.ExpectedOutput != "ho" {
		t.Fatalf("stdout=%q expected=%q, want hi/ho", *v.Stdout, *v.ExpectedOutput)
	}
}

func TestAdjudicateTLE(t *testing.T) {
	sig := "SIGKILL"
	run := []sandbox.RunResult{{Signal: &sig}}
	v := Adjudicate(run, []string{"x"}, nil)
	if v.Status != TLE {
		t.Fatalf("status = %v, want TLE", v.Status)
	}
}

func TestAdjudicateRuntimeErrorEvenWithZeroExit(t *testing.T) {
	zero := 0
	run := []sandbox.RunResult{{Stderr: []byte("warning: deprecated"), ExitCode: &zero}}
	v := Adjudicate(run, []string{"x"}, nil)
	if v.Status != RUNTIME {
		t.Fatalf("status = %v, want RUNTIME even with exit 0", v.Status)
	}
	if *v.Stdout != "warning: deprecated" {
		t.Fatalf("stdout = %q, want the stderr text", *v.Stdout)
	}
}

func TestAdjudicateNoExpectedOutputNeverProducesWA(t *testing.T) {
	run := []sandbox.RunResult{{Stdout: []byte("anything")}}
	v := Adjudicate(run, []string{"x"}, nil)
	if v.Status != AC {
		t.Fatalf("status = %v, want AC when no expected output supplied", v.Status)
	}
}

func TestAdjudicateEmptyStdinIsAC(t *testing.T) {
	v := Adjudicate(nil, nil, nil)
	if v.Status != AC {
		t.Fatalf("status = %v, want AC", v.Status)
	}
	if v.Stdout != nil || v.Stdin != nil {
		t.Fatalf("expected nil stdout/stdin for zero test cases, got %v %v", v.Stdout, v.Stdin)
	}
}

func TestAdjudicateFirstFailingCaseWinsByIndex(t *testing.T) {
	sig := "SIGKILL"
	run := []sandbox.RunResult{
		{Stdout: []byte("ok")},
		{Signal: &sig},
		{Stderr: []byte("boom")},
	}
	v := Adjudicate(run, []string{"a", "b", "c"}, []string{"ok", "b", "c"})
	if v.Status != TLE {
		t.Fatalf("status = %v, want TLE from case index 1, not RUNTIME from index 2", v.Status)
	}
	if *v.Stdin != "b" {
		t.Fatalf("stdin = %q, want the offending case's stdin (b)", *v.Stdin)
	}
}

func TestAdjudicatePriorityWithinCaseRuntimeBeatsTLE(t *testing.T) {
	sig := "SIGKILL"
	run := []sandbox.RunResult{{Stderr: []byte("err"), Signal: &sig}}
	v := Adjudicate(run, []string{"x"}, nil)
	if v.Status != RUNTIME {
		t.Fatalf("status = %v, want RUNTIME (RUNTIME > TLE within a case)", v.Status)
	}
}

func TestCompilationVerdict(t *testing.T) {
	v := Compilation("syntax error")
	if v.Status != COMPILATION || *v.Stdout != "syntax error" {
		t.Fatalf("got %+v", v)
	}
}

func TestStatusMarshalJSONQuotesTheString(t *testing.T) {
	b, err := WA.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"WA"` {
		t.Fatalf("MarshalJSON() = %s, want \"WA\"", b)
	}
}
