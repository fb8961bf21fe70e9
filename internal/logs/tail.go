package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunLogPattern matches the per-run log files in the log directory.
const RunLogPattern = "rigshift-*.log"

// ErrNoLogs is returned by Latest when the directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

// TailOptions controls a tail read. A negative Offset reads the last Limit
// lines; otherwise reading resumes at Offset. Follow waits up to Wait for new
// lines when none are available.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Latest returns the most recently modified run log in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate{path: path, mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	// Names embed the start time, so they break modification time ties.
	sort.Slice(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].path > found[j].path
		}
		return found[i].mod.After(found[j].mod)
	})
	return found[0].path, nil
}

// Tail reads lines from path. A missing file yields no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var res TailResult
	if opts.Offset < 0 {
		res, err = lastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			start = info.Size()
		}
		res, err = readFrom(path, start)
	}
	if err != nil {
		return res, err
	}
	if opts.Follow && opts.Wait > 0 && len(res.Lines) == 0 {
		return follow(ctx, path, res.Offset, opts.Wait)
	}
	return res, nil
}

func lastLines(path string, limit int) (TailResult, error) {
	all, err := readFrom(path, 0)
	if err != nil || limit <= 0 {
		return TailResult{Offset: all.Offset}, err
	}
	if len(all.Lines) > limit {
		all.Lines = all.Lines[len(all.Lines)-limit:]
	}
	return all, nil
}

func readFrom(path string, offset int64) (TailResult, error) {
	res := TailResult{Offset: offset}
	file, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return res, fmt.Errorf("seek log file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		res.Lines = append(res.Lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read log file: %w", err)
	}
	if res.Offset, err = file.Seek(0, io.SeekCurrent); err != nil {
		return res, fmt.Errorf("determine log offset: %w", err)
	}
	return res, nil
}

func follow(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		res, err := readFrom(path, offset)
		if err != nil || len(res.Lines) > 0 {
			return res, err
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-deadline.C:
			return res, nil
		case <-ticker.C:
		}
	}
}
