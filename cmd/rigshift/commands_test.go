package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rigshift/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "rigshift.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", path}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("expected init output to name %s, got %q", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", path}, ""); err == nil {
		t.Fatalf("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("expected validation message, got %q", out)
	}
}

func TestPreflightWarnsOnOptionalService(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[WARN]") {
		t.Fatalf("expected unreachable service warning, got %q", out)
	}
}

func TestPreflightFailsOnMissingRuntime(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithModelFile())

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err == nil {
		t.Fatalf("expected preflight failure without a runtime library\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected an error line, got %q", out)
	}
}

func TestInspectBVH(t *testing.T) {
	env := setupCLITestEnv(t)
	rigPath := writeTempFile(t, "walk.bvh", testsupport.TwoFrameBVH)

	out, _, err := runCLI(t, []string{"inspect", "--rig", rigPath}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"3 nodes", "2 frames", "Hips", "Spine", "joints unresolved", "No skinned mesh"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in inspect output:\n%s", want, out)
		}
	}
}

func TestInspectRejectsUnknownExtension(t *testing.T) {
	env := setupCLITestEnv(t)
	rigPath := writeTempFile(t, "rig.fbx", "binary")

	if _, _, err := runCLI(t, []string{"inspect", "--rig", rigPath}, env.configPath); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestRetargetRequiresModel(t *testing.T) {
	env := setupCLITestEnv(t)
	source := writeTempFile(t, "walk.bvh", testsupport.TwoFrameBVH)

	_, _, err := runCLI(t, []string{"retarget", "--source", source, "--target", "rig.glb"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no model configured") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestJobCommands(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1", "status": "queued"})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jobId":             r.URL.Query().Get("jobId"),
			"filename":          "hero.glb",
			"status":            "running",
			"message":           "distilling",
			"r2etEtaSeconds":    0,
			"studentEtaSeconds": 125,
		})
	})
	mux.HandleFunc("DELETE /api/job/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithServiceURL(server.URL))

	out, _, err := runCLI(t, []string{"job", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("job status (empty): %v", err)
	}
	if !strings.Contains(out, "No job tracked") {
		t.Fatalf("expected empty status, got %q", out)
	}

	rigPath := writeTempFile(t, "hero.glb", "glTF")
	out, _, err = runCLI(t, []string{"job", "submit", rigPath}, env.configPath)
	if err != nil {
		t.Fatalf("job submit: %v", err)
	}
	if !strings.Contains(out, "job-1") {
		t.Fatalf("expected job id in submit output, got %q", out)
	}
	if _, _, err := runCLI(t, []string{"job", "submit", rigPath}, env.configPath); err == nil {
		t.Fatalf("expected second submit to be refused")
	}

	out, _, err = runCLI(t, []string{"job", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	for _, want := range []string{"running", "distilling", "complete", "02:05"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in status output:\n%s", want, out)
		}
	}

	if _, _, err := runCLI(t, []string{"job", "download"}, env.configPath); err == nil {
		t.Fatalf("expected download of a running job to fail")
	}

	out, _, err = runCLI(t, []string{"job", "delete"}, env.configPath)
	if err != nil {
		t.Fatalf("job delete: %v", err)
	}
	if !strings.Contains(out, "Deleted job job-1") {
		t.Fatalf("unexpected delete output %q", out)
	}
}

func TestLogsShowsNewestRunLog(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(env.cfg.Paths.LogDir, "rigshift-20990101T000000Z.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2", "--file", path}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
