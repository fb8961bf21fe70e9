package preflight

import (
	"context"

	"rigshift/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are reported but do not fail the run.
	Optional bool
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
	}
	results = append(results, ModelChecks(cfg)...)
	results = append(results, CheckJobStore(ctx, cfg))

	service := CheckService(ctx, cfg.Service.BaseURL, cfg.RequestTimeout())
	service.Optional = true
	results = append(results, service)
	return results
}

// ModelChecks covers what Load needs: the model artifact and the ONNX
// Runtime shared library. Without a configured model both are skipped.
func ModelChecks(cfg *config.Config) []Result {
	if cfg.Model.Path == "" {
		return []Result{{Name: "Model", Passed: true, Optional: true, Detail: "not configured (download a job result or set [model] path)"}}
	}
	return []Result{
		CheckModelFile(cfg.Model.Path),
		CheckRuntimeLibrary(cfg.Model.RuntimeLibrary),
	}
}
