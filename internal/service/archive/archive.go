// Package archive relocates approved photos into the posted folder.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrSourceMissing means the approved photo is no longer in the watched folder.
var ErrSourceMissing = errors.New("source file not found")

// FileSystemError reports a failed move. The approval that triggered it stays committed.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// Archiver moves files from the watched folder into the archive folder.
type Archiver struct {
	sourceDir  string
	archiveDir string
}

// New creates an Archiver.
func New(sourceDir, archiveDir string) *Archiver {
	return &Archiver{sourceDir: sourceDir, archiveDir: archiveDir}
}

// Move relocates filename into the archive folder, appending _1, _2, ...
// before the extension on collision. Returns the name used in the archive.
func (a *Archiver) Move(filename string) (string, error) {
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", &FileSystemError{Op: "validate", Path: filename, Err: errors.New("filename must not contain a path")}
	}

	src := filepath.Join(a.sourceDir, filename)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", &FileSystemError{Op: "stat", Path: src, Err: ErrSourceMissing}
		}
		return "", &FileSystemError{Op: "stat", Path: src, Err: err}
	}

	if err := os.MkdirAll(a.archiveDir, 0755); err != nil {
		return "", &FileSystemError{Op: "mkdir", Path: a.archiveDir, Err: err}
	}

	name, err := a.freeName(filename)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(a.archiveDir, name)

	if err := os.Rename(src, dest); err != nil {
		// Rename fails across filesystems; fall back to copy + remove
		if err := copyFile(src, dest); err != nil {
			return "", &FileSystemError{Op: "copy", Path: dest, Err: err}
		}
		if err := os.Remove(src); err != nil {
			return name, &FileSystemError{Op: "remove", Path: src, Err: err}
		}
	}

	return name, nil
}

// freeName returns filename, or the first name_N.ext not present in the archive.
func (a *Archiver) freeName(filename string) (string, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	candidate := filename
	for i := 1; ; i++ {
		_, err := os.Stat(filepath.Join(a.archiveDir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", &FileSystemError{Op: "stat", Path: candidate, Err: err}
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
