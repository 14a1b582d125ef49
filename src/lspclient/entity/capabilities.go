package entity

// SyncMode is the document synchronization strategy negotiated with a server.
type SyncMode int

const (
	// SyncNone means the server does not want document content.
	SyncNone SyncMode = iota
	// SyncFull means every change carries the whole document.
	SyncFull
	// SyncIncremental means every change carries only the edited ranges.
	SyncIncremental
)

// String implements fmt.Stringer.
func (m SyncMode) String() string {
	switch m {
	case SyncFull:
		return "Full"
	case SyncIncremental:
		return "Incremental"
	default:
		return "None"
	}
}

// Capabilities is the typed view of what a server declared in its initialize response.
// The zero value means nothing is supported.
type Capabilities struct {
	Completion                     bool     `json:"completion"`
	CompletionTriggerCharacters    []string `json:"completionTriggerCharacters,omitempty"`
	CompletionResolve              bool     `json:"completionResolve"`
	References                     bool     `json:"references"`
	Definition                     bool     `json:"definition"`
	Hover                          bool     `json:"hover"`
	SignatureHelp                  bool     `json:"signatureHelp"`
	SignatureHelpTriggerCharacters []string `json:"signatureHelpTriggerCharacters,omitempty"`
	Rename                         bool     `json:"rename"`
	CodeAction                     bool     `json:"codeAction"`
	DocumentFormatting             bool     `json:"documentFormatting"`
	RangeFormatting                bool     `json:"rangeFormatting"`
	WorkspaceSymbols               bool     `json:"workspaceSymbols"`
	ExecuteCommand                 bool     `json:"executeCommand"`
	Commands                       []string `json:"commands,omitempty"`
	Sync                           SyncMode `json:"sync"`
}
