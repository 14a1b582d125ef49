package fs

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkdirAll(t *testing.T) {
	dir := t.TempDir()
	fs := New()
	err := fs.MkdirAll(filepath.Join(dir, "foo/bar"))
	assert.NoError(t, err)

	exists, err := fs.DirExists(filepath.Join(dir, "foo/bar"))
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestWorkspaceRoot(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("no git available")
	}

	workspace := prepareWorkspaceDirectory(t)
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "pkg"), os.ModePerm))
	file := filepath.Join(workspace, "pkg", "a.go")
	require.NoError(t, os.WriteFile(file, []byte("package pkg"), 0644))

	fs := New()
	expected, err := filepath.EvalSymlinks(workspace)
	require.NoError(t, err)

	t.Run("directory", func(t *testing.T) {
		root, err := fs.WorkspaceRoot(filepath.Join(workspace, "pkg"))
		require.NoError(t, err)
		actual, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})

	t.Run("file", func(t *testing.T) {
		root, err := fs.WorkspaceRoot(file)
		require.NoError(t, err)
		actual, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
}

func TestDirExists(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		dir := t.TempDir()
		fs := New()
		result, err := fs.DirExists(dir)
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("does not exist", func(t *testing.T) {
		dir := t.TempDir()
		fs := New()
		result, err := fs.DirExists(dir + "foo")
		assert.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "a.txt")
		require.NoError(t, os.WriteFile(file, []byte("a"), 0644))
		result, err := New().DirExists(file)
		assert.NoError(t, err)
		assert.False(t, result)
	})
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0644))
	fs := New()

	result, err := fs.FileExists(file)
	assert.NoError(t, err)
	assert.True(t, result)

	result, err = fs.FileExists(dir)
	assert.NoError(t, err)
	assert.False(t, result)

	result, err = fs.FileExists(filepath.Join(dir, "missing.txt"))
	assert.NoError(t, err)
	assert.False(t, result)
}

func TestReadWriteRemove(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.sh")
	require.NoError(t, os.WriteFile(file, []byte("old"), 0755))
	fs := New()

	require.NoError(t, fs.WriteFile(file, "new"))
	data, err := fs.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	require.NoError(t, fs.Remove(file))
	_, err = fs.ReadFile(file)
	assert.True(t, os.IsNotExist(err))
}

func prepareWorkspaceDirectory(t *testing.T) string {
	workspace := t.TempDir()
	gitCommandInDir(t, workspace, "init")
	return workspace
}

func gitCommandInDir(t *testing.T, repoDir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoDir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed git command %s - %v", out, err)
	return string(out)
}
