package jobs

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"rigshift/internal/services"
)

// ErrUnsafeArchive marks an entry that would escape the extraction root.
var ErrUnsafeArchive = errors.New("archive entry escapes destination")

// Extract unpacks zipPath into dir, overwriting existing files. Entries with
// absolute paths or parent traversal are rejected before anything is written.
func Extract(zipPath, dir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if r != nil {
			_ = r.Close()
		}
		return nil, services.Wrap(services.ErrValidation, "jobs", "extract", zipPath, ErrUnsafeArchive)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobs", "extract", "open archive", err)
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	targets := make([]string, len(r.File))
	for i, f := range r.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "jobs", "extract", f.Name, err)
		}
		targets[i] = target
	}

	var written []string
	for i, f := range r.File {
		target := targets[i]
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func safeJoin(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", ErrUnsafeArchive
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafeArchive
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return dst.Close()
}

// FindModel returns the first .onnx file under dir in lexical walk order.
func FindModel(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".onnx") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	if found == "" {
		return "", services.Wrap(services.ErrNotFound, "jobs", "find model", fmt.Sprintf("no .onnx file under %s", dir), nil)
	}
	return found, nil
}
