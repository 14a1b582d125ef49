package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestNewConfigFromDir(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		env         map[string]string
		path        string
		expected    string
		expectError bool
	}{
		{
			name: "later files override earlier ones",
			files: map[string]string{
				"meta.yaml":  "files:\n  - base.yaml\n  - local.yaml\n",
				"base.yaml":  "logging:\n  level: info\n",
				"local.yaml": "logging:\n  level: debug\n",
			},
			path:     "logging.level",
			expected: "debug",
		},
		{
			name: "missing files are skipped",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n  - absent.yaml\n",
				"base.yaml": "session:\n  exitTimeout: 1s\n",
			},
			path:     "session.exitTimeout",
			expected: "1s",
		},
		{
			name: "environment variables are expanded",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n",
				"base.yaml": "settings:\n  file: ${LSPCLIENT_TEST_HOME:/tmp}/settings.json\n",
			},
			env:      map[string]string{"LSPCLIENT_TEST_HOME": "/home/test"},
			path:     "settings.file",
			expected: "/home/test/settings.json",
		},
		{
			name: "no listed file exists",
			files: map[string]string{
				"meta.yaml": "files:\n  - absent.yaml\n",
			},
			expectError: true,
		},
		{
			name:        "no meta file",
			files:       map[string]string{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := writeConfigDir(t, tt.files)

			provider, err := NewConfigFromDir(dir)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, provider)
				return
			}
			require.NoError(t, err)

			var got string
			require.NoError(t, provider.Get(tt.path).Populate(&got))
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, "config", provider.(Config).Name())
		})
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Run("returns environment variable when set", func(t *testing.T) {
		t.Setenv(_envConfigDir, "/custom/config/path")
		assert.Equal(t, "/custom/config/path", getConfigDir())
	})

	t.Run("returns default path when environment variable not set", func(t *testing.T) {
		t.Setenv(_envConfigDir, "")
		assert.Equal(t, _defaultConfigDir, getConfigDir())
	})
}
