package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rigshift/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckModelFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "student.onnx")
	testsupport.WriteFile(t, good, 2048)
	if r := CheckModelFile(good); !r.Passed || !strings.Contains(r.Detail, "2.0 KiB") {
		t.Fatalf("expected pass with size, got %+v", r)
	}

	wrongExt := filepath.Join(dir, "student.bin")
	testsupport.WriteFile(t, wrongExt, 10)
	if r := CheckModelFile(wrongExt); r.Passed {
		t.Fatal("expected failure for non-onnx file")
	}

	empty := filepath.Join(dir, "empty.onnx")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckModelFile(empty); r.Passed {
		t.Fatal("expected failure for empty model")
	}
	if r := CheckModelFile(filepath.Join(dir, "missing.onnx")); r.Passed {
		t.Fatal("expected failure for missing model")
	}
}

func TestCheckRuntimeLibrary(t *testing.T) {
	if r := CheckRuntimeLibrary(""); r.Passed {
		t.Fatal("expected failure when unset")
	}
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	testsupport.WriteFile(t, lib, 16)
	if r := CheckRuntimeLibrary(lib); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
}

func TestCheckService_NotFoundIsReachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	result := CheckService(context.Background(), srv.URL, time.Second)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if result := CheckService(context.Background(), srv.URL, time.Second); result.Passed {
		t.Fatal("expected failure for 500")
	}
	if result := CheckService(context.Background(), "", time.Second); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// Three directories, model placeholder, job database, service.
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no required failures")
	}
}

func TestRunAll_ModelWithoutRuntimeFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFile())
	cfg.Model.RuntimeLibrary = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if !Failed(results) {
		t.Fatal("expected missing runtime library to fail preflight")
	}
	for _, r := range results {
		if r.Name == "Model" && !r.Passed {
			t.Fatalf("model check should pass: %s", r.Detail)
		}
	}
}
