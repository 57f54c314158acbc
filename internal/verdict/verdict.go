// Package verdict implements the Verdict Adjudicator: a pure function
// folding run results (and, separately, a compile short-circuit decided
// by the job engine) into a single structured Verdict.
package verdict

import (
	"strings"

	"github.com/judgecore/judge/internal/sandbox"
)

// Status is the outcome classification of a Verdict. MLE and PENDING are
// reserved taxonomy slots: the adjudicator never produces them.
type Status string

const (
	AC          Status = "AC"
	WA          Status = "WA"
	COMPILATION Status = "COMPILATION"
	RUNTIME     Status = "RUNTIME"
	TLE         Status = "TLE"
	MLE         Status = "MLE"
	PENDING     Status = "PENDING"
	ERROR       Status = "ERROR"
)

func (s Status) String() string { return string(s) }

func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Verdict is the judge's structured answer.
type Verdict struct {
	Status         Status
	Stdout         *string
	Stdin          *string
	ExpectedOutput *string
}

func ptr(s string) *string { return &s }

// Compilation builds the COMPILATION short-circuit verdict for a failed
// compile phase. message is the compile stderr, or a generic message when
// the compile produced no stderr despite being SIGKILLed.
func Compilation(message string) Verdict {
	return Verdict{Status: COMPILATION, Stdout: ptr(message)}
}

// Error builds the ERROR verdict wrapping a structural failure.
func Error(message string) Verdict {
	return Verdict{Status: ERROR, Stdout: ptr(message)}
}

// Adjudicate folds run results into a single Verdict. It iterates test
// cases in ascending index order and returns the first non-accepting
// verdict found, RUNTIME > TLE > WA within a case. expected may be nil,
// meaning no expected output was supplied (WA is then never produced).
// stdin must be the same length as run, and so must expected when it is
// non-nil.
func Adjudicate(run []sandbox.RunResult, stdin []string, expected []string) Verdict {
	hasExpected := expected != nil

	for i, r := range run {
		if len(r.Stderr) > 0 {
			return Verdict{
				Status:         RUNTIME,
				Stdout:         ptr(string(r.Stderr)),
				Stdin:          ptr(stdin[i]),
				ExpectedOutput: expectedAt(hasExpected, expected, i),
			}
		}
		if r.Signal != nil && *r.Signal == "SIGKILL" {
			return Verdict{
				Status:         TLE,
				Stdout:         ptr(string(r.Stdout)),
				Stdin:          ptr(stdin[i]),
				ExpectedOutput: expectedAt(hasExpected, expected, i),
			}
		}
		if hasExpected {
			gotTrim := strings.TrimSpace(string(r.Stdout))
			wantTrim := strings.TrimSpace(expected[i])
			if gotTrim != wantTrim {
				return Verdict{
					Status:         WA,
					Stdout:         ptr(gotTrim),
					Stdin:          ptr(stdin[i]),
					ExpectedOutput: ptr(wantTrim),
				}
			}
		}
	}

	if len(run) == 0 {
		return Verdict{Status: AC}
	}
	return Verdict{
		Status: AC,
		Stdout: ptr(strings.TrimSpace(string(run[0].Stdout))),
		Stdin:  ptr(stdin[0]),
	}
}

func expectedAt(hasExpected bool, expected []string, i int) *string {
	if !hasExpected {
		return nil
	}
	return ptr(expected[i])
}
