package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"rigshift/internal/config"
	"rigshift/internal/jobs"
	"rigshift/internal/jobstore"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelFile verifies the model artifact is a readable, non-empty file.
func CheckModelFile(path string) Result {
	const name = "Model"
	return checkReadableFile(name, path, func(info os.FileInfo) string {
		if !strings.EqualFold(filepath.Ext(path), ".onnx") {
			return "expected a .onnx file"
		}
		return ""
	})
}

// CheckRuntimeLibrary verifies the ONNX Runtime shared library is readable.
func CheckRuntimeLibrary(path string) Result {
	const name = "ONNX Runtime"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured (set [model] runtime_library or ONNXRUNTIME_SHARED_LIBRARY_PATH)"}
	}
	return checkReadableFile(name, path, nil)
}

func checkReadableFile(name, path string, extra func(os.FileInfo) string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: empty file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	if extra != nil {
		if problem := extra(info); problem != "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, problem)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, humanSize(info.Size()))}
}

// CheckService verifies the job service answers HTTP. A 404 from the
// health route still counts as reachable.
func CheckService(ctx context.Context, baseURL string, timeout time.Duration) Result {
	const name = "Job service"

	if strings.TrimSpace(baseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := jobs.New(baseURL, jobs.WithTimeout(timeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	code, err := client.Ping(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%d)", client.BaseURL(), code)}
}

// CheckJobStore opens the jobs database and runs an integrity check.
func CheckJobStore(ctx context.Context, cfg *config.Config) Result {
	const name = "Job database"

	store, err := jobstore.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: store.Path()}
}

func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
