package fs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ClientFS wraps the filesystem operations used when applying edits and loading settings.
type ClientFS interface {
	WorkspaceRoot(path string) (string, error)
	DirExists(path string) (bool, error)
	FileExists(path string) (bool, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data string) error
	MkdirAll(path string) error
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new ClientFS.
func New() ClientFS {
	return fsImpl{}
}

// WorkspaceRoot returns the git top level directory enclosing path.
// path may be a file or a directory.
func (f fsImpl) WorkspaceRoot(path string) (string, error) {
	dir := path
	if isDir, err := f.DirExists(path); err != nil {
		return "", err
	} else if !isDir {
		dir = filepath.Dir(path)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// MkdirAll creates a directory and all its parents.
func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fsImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (fsImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile replaces the content of name, keeping the existing permissions when the file exists.
func (fsImpl) WriteFile(name string, data string) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(name); err == nil {
		perm = info.Mode().Perm()
	}
	return os.WriteFile(name, []byte(data), perm)
}

func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}
