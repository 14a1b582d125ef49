package settings

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/fs"
	"github.com/uber/lsp-client/src/lspclient/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newController(t *testing.T, cfg map[string]interface{}, clientFS fs.ClientFS) (Controller, *fxtest.Lifecycle) {
	provider, err := config.NewStaticProvider(map[string]interface{}{"settings": cfg})
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	c, err := New(Params{
		Config:    provider,
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
		FS:        clientFS,
	})
	require.NoError(t, err)
	return c, lc
}

func TestSettings(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("client without sections", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		c, _ := newController(t, map[string]interface{}{"file": "/home/settings.json"}, fsMock)

		result, err := c.Settings(entity.Client{Name: "bash"})
		assert.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("user settings filtered", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		fsMock.EXPECT().FileExists("/home/settings.json").Return(true, nil)
		fsMock.EXPECT().ReadFile("/home/settings.json").Return([]byte(`{"yaml.validate": true, "editor.tabSize": 2}`), nil)
		c, _ := newController(t, map[string]interface{}{"file": "/home/settings.json"}, fsMock)

		result, err := c.Settings(entity.Client{Name: "yaml", ConfigurationSections: []string{"yaml"}})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"yaml": map[string]interface{}{"validate": true},
		}, result)
	})

	t.Run("missing user settings with yaml defaults", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		fsMock.EXPECT().FileExists("/home/settings.json").Return(false, nil)
		fsMock.EXPECT().FileExists("/clients/yaml.yaml").Return(true, nil)
		fsMock.EXPECT().ReadFile("/clients/yaml.yaml").Return([]byte("yaml.hover: true\nyaml.customTags:\n  - '!Ref'\n"), nil)
		c, _ := newController(t, map[string]interface{}{"file": "/home/settings.json"}, fsMock)

		result, err := c.Settings(entity.Client{
			Name:                  "yaml",
			ConfigurationSections: []string{"yaml"},
			DefaultSettingsFile:   "/clients/yaml.yaml",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"yaml": map[string]interface{}{
				"hover":      true,
				"customTags": []interface{}{"!Ref"},
			},
		}, result)
	})

	t.Run("no settings file configured", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		c, _ := newController(t, map[string]interface{}{}, fsMock)

		result, err := c.Settings(entity.Client{Name: "yaml", ConfigurationSections: []string{"yaml"}})
		assert.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("read failure", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		fsMock.EXPECT().FileExists("/home/settings.json").Return(true, nil)
		fsMock.EXPECT().ReadFile("/home/settings.json").Return(nil, errors.New("permission denied"))
		c, _ := newController(t, map[string]interface{}{"file": "/home/settings.json"}, fsMock)

		_, err := c.Settings(entity.Client{Name: "yaml", ConfigurationSections: []string{"yaml"}})
		assert.ErrorContains(t, err, "permission denied")
	})

	t.Run("invalid json", func(t *testing.T) {
		fsMock := fsmock.NewMockClientFS(ctrl)
		fsMock.EXPECT().FileExists("/home/settings.json").Return(true, nil)
		fsMock.EXPECT().ReadFile("/home/settings.json").Return([]byte(`{"yaml.validate": `), nil)
		c, _ := newController(t, map[string]interface{}{"file": "/home/settings.json"}, fsMock)

		_, err := c.Settings(entity.Client{Name: "yaml", ConfigurationSections: []string{"yaml"}})
		assert.ErrorContains(t, err, "parsing /home/settings.json")
	})
}

func TestParse(t *testing.T) {
	doc, err := Parse("settings.json", []byte("  "))
	require.NoError(t, err)
	assert.Empty(t, doc)

	doc, err = Parse("settings.JSON", []byte(`{"a": [1, "b"]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": []interface{}{float64(1), "b"}}, doc)

	doc, err = Parse("defaults.yml", []byte("a:\n  b: c\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": map[string]interface{}{"b": "c"}}, doc)

	_, err = Parse("defaults.yaml", []byte("- a\n- b\n"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(file, []byte(`{}`), 0644))

	c, lc := newController(t, map[string]interface{}{
		"file":     file,
		"watch":    true,
		"debounce": "20ms",
	}, fs.New())

	var changes int32
	unsubscribe := c.Subscribe(func() { atomic.AddInt32(&changes, 1) })
	defer unsubscribe()

	lc.RequireStart()
	defer lc.RequireStop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(file, []byte(`{"yaml.validate": false}`), 0644))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&changes) >= 1 }, 2*time.Second, 10*time.Millisecond)

	result, err := c.Settings(entity.Client{Name: "yaml", ConfigurationSections: []string{"yaml"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"yaml": map[string]interface{}{"validate": false}}, result)
}
