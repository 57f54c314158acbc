package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/judgecore/judge/cmd/judged/model"
	"github.com/judgecore/judge/internal/facade"
	"github.com/judgecore/judge/internal/identity"
	"github.com/judgecore/judge/internal/runtime"
	"github.com/judgecore/judge/internal/sandbox"
)

type fakeInvoker struct {
	results []sandbox.RunResult
	next    int
}

func (f *fakeInvoker) SafeCall(_ context.Context, _ string, _ []string, _ time.Duration, stdin []byte, _ []string, _ string, _, _ int, _ string) (sandbox.RunResult, error) {
	r := sandbox.RunResult{}
	if f.next < len(f.results) {
		r = f.results[f.next]
	}
	f.next++
	r.Stdin = stdin
	return r, nil
}

type fakeRegistry struct {
	rt runtime.Runtime
}

func (f *fakeRegistry) All() []runtime.Runtime { return []runtime.Runtime{f.rt} }
func (f *fakeRegistry) Lookup(language, version string) (runtime.Runtime, bool) {
	if f.rt.Language == language && f.rt.Version == version {
		return f.rt, true
	}
	return runtime.Runtime{}, false
}
func (f *fakeRegistry) LookupAlias(string) (runtime.Runtime, bool) { return runtime.Runtime{}, false }
func (f *fakeRegistry) Refresh(context.Context) error              { return nil }

func requestToReader(t *testing.T, req model.Request) io.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func TestHandleSubmitAC(t *testing.T) {
	reg := &fakeRegistry{rt: runtime.Runtime{Language: "python", Version: "3.10.0", PkgDir: "/pkg/python/3.10.0"}}
	inv := &fakeInvoker{results: []sandbox.RunResult{{Stdout: []byte("hi")}}}
	pool := identity.New(identity.Range{Min: 1000, Max: 1000}, identity.Range{Min: 1000, Max: 1000})
	f := facade.New(t.TempDir(), pool, inv, nil)

	router := gin.New()
	NewJobHandle(f, reg, zaptest.NewLogger(t)).Register(router)

	req := model.Request{
		Language: "python",
		Version:  "3.10.0",
		Files:    []model.File{{Name: "main.py", Content: "print(input())"}},
		Main:     "main.py",
		Stdin:    []string{"hi"},
	}
	expected := []string{"hi"}
	req.ExpectedOutput = &expected

	testReq := httptest.NewRequest("POST", "/jobs", requestToReader(t, req))
	testReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp model.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Verdict.Status != "AC" {
		t.Fatalf("verdict = %+v", resp.Verdict)
	}
}

func TestHandleSubmitUnknownRuntimeIsBadRequest(t *testing.T) {
	reg := &fakeRegistry{}
	pool := identity.New(identity.Range{Min: 1000, Max: 1000}, identity.Range{Min: 1000, Max: 1000})
	f := facade.New(t.TempDir(), pool, &fakeInvoker{}, nil)

	router := gin.New()
	NewJobHandle(f, reg, zaptest.NewLogger(t)).Register(router)

	req := model.Request{Language: "cobol", Version: "1", Files: []model.File{{Name: "a"}}, Main: "a"}
	testReq := httptest.NewRequest("POST", "/jobs", requestToReader(t, req))
	testReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testReq)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListRuntimes(t *testing.T) {
	reg := &fakeRegistry{rt: runtime.Runtime{Language: "python", Version: "3.10.0"}}
	router := gin.New()
	NewRuntimeHandle(reg).Register(router)

	testReq := httptest.NewRequest("GET", "/runtimes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []runtimeView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Language != "python" {
		t.Fatalf("views = %+v", views)
	}
}
