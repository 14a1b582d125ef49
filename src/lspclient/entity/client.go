package entity

// Transport names accepted in client descriptors.
const (
	TransportStdio     = "stdio"
	TransportTCP       = "tcp"
	TransportUnix      = "unix"
	TransportWebSocket = "websocket"
)

// Client describes one language server integration, as declared in configuration.
type Client struct {
	Name        string   `yaml:"name" json:"name"`
	LanguageIDs []string `yaml:"languageIds" json:"languageIds"`

	Transport string   `yaml:"transport" json:"transport"`
	Command   string   `yaml:"command" json:"command,omitempty"`
	Args      []string `yaml:"args" json:"args,omitempty"`
	Env       []string `yaml:"env" json:"env,omitempty"`
	Address   string   `yaml:"address" json:"address,omitempty"`

	ConfigurationSections []string `yaml:"configurationSections" json:"configurationSections,omitempty"`
	DefaultSettingsFile   string   `yaml:"defaultSettingsFile" json:"defaultSettingsFile,omitempty"`
	// InitializationOptions is a JSON document passed through verbatim in initialize.
	InitializationOptions string `yaml:"initializationOptions" json:"initializationOptions,omitempty"`
	AcceptsWorkspaceEdit  bool   `yaml:"acceptsWorkspaceEdit" json:"acceptsWorkspaceEdit"`
}

// HasConfigurationSections reports whether the client asks for any settings.
func (c Client) HasConfigurationSections() bool {
	return len(c.ConfigurationSections) > 0
}
