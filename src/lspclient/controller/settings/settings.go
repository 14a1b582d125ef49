package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/event"
	"github.com/uber/lsp-client/src/lspclient/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	_configKey       = "settings"
	_defaultDebounce = 200 * time.Millisecond
)

// Module provides the settings controller to fx.
var Module = fx.Provide(New)

// Controller produces the configuration sent to language servers.
type Controller interface {
	// Settings returns the settings for client's configuration sections, or nil when nothing should be sent.
	Settings(client entity.Client) (map[string]interface{}, error)
	// Subscribe registers handler to run after the settings file changed.
	Subscribe(handler func()) (unsubscribe func())
}

// Config is the settings block of the configuration.
type Config struct {
	// File is the user settings document, JSON or YAML.
	File string `yaml:"file"`
	// Watch re-reads File when it changes on disk.
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// Params are inbound parameters to create the controller.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	FS        fs.ClientFS
}

type controller struct {
	cfg     Config
	logger  *zap.SugaredLogger
	fs      fs.ClientFS
	feed    event.Feed[struct{}]
	watcher *watcher
}

// New creates the settings controller and, when configured, the file watcher.
func New(p Params) (Controller, error) {
	c := &controller{
		logger: p.Logger,
		fs:     p.FS,
	}

	if err := p.Config.Get(_configKey).Populate(&c.cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if c.cfg.Debounce <= 0 {
		c.cfg.Debounce = _defaultDebounce
	}

	if c.cfg.Watch && c.cfg.File != "" {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w, err := newWatcher(c.cfg.File, c.cfg.Debounce, c.logger, func() { c.feed.Publish(struct{}{}) })
				if err != nil {
					return err
				}
				c.watcher = w
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if c.watcher == nil {
					return nil
				}
				return c.watcher.Close()
			},
		})
	}

	return c, nil
}

func (c *controller) Settings(client entity.Client) (map[string]interface{}, error) {
	if !client.HasConfigurationSections() {
		return nil, nil
	}

	user, err := c.readDocument(c.cfg.File)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if user == nil {
		user = map[string]interface{}{}
	}

	defaults, err := c.readDocument(client.DefaultSettingsFile)
	if err != nil {
		return nil, fmt.Errorf("reading default settings of %q: %w", client.Name, err)
	}

	return Filter(client.ConfigurationSections, user, defaults), nil
}

func (c *controller) Subscribe(handler func()) func() {
	return c.feed.Subscribe(func(struct{}) { handler() })
}

// readDocument returns nil without error when path is empty or missing.
func (c *controller) readDocument(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}

	exists, err := c.fs.FileExists(path)
	if err != nil || !exists {
		return nil, err
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes a settings document. Files ending in .yaml or .yml are YAML, everything else is JSON.
func Parse(path string, data []byte) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return doc, nil
}
