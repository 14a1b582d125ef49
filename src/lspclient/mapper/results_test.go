package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestResultToCompletionList(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantLabels     []string
		wantIncomplete bool
		wantErr        bool
	}{
		{name: "null", raw: `null`, wantLabels: []string{}},
		{name: "empty", raw: ``, wantLabels: []string{}},
		{name: "array", raw: `[{"label": "a"}, {"label": "b"}]`, wantLabels: []string{"a", "b"}},
		{name: "list", raw: `{"isIncomplete": true, "items": [{"label": "c"}]}`, wantLabels: []string{"c"}, wantIncomplete: true},
		{name: "list without items", raw: `{"isIncomplete": false}`, wantLabels: []string{}},
		{name: "invalid", raw: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			list, err := ResultToCompletionList(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			labels := []string{}
			for _, item := range list.Items {
				labels = append(labels, item.Label)
			}
			assert.Equal(t, tt.wantLabels, labels)
			assert.Equal(t, tt.wantIncomplete, list.IsIncomplete)
		})
	}
}

func TestResultToLocations(t *testing.T) {
	fileURI := uri.File("/ws/a.go")
	loc := protocol.Location{
		URI: fileURI,
		Range: protocol.Range{
			Start: protocol.Position{Line: 1, Character: 2},
			End:   protocol.Position{Line: 1, Character: 4},
		},
	}
	single, err := json.Marshal(loc)
	require.NoError(t, err)
	many, err := json.Marshal([]protocol.Location{loc, loc})
	require.NoError(t, err)
	links, err := json.Marshal([]protocol.LocationLink{{TargetURI: fileURI, TargetRange: loc.Range, TargetSelectionRange: loc.Range}})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
		want []protocol.Location
	}{
		{name: "null", raw: []byte(`null`), want: []protocol.Location{}},
		{name: "single", raw: single, want: []protocol.Location{loc}},
		{name: "array", raw: many, want: []protocol.Location{loc, loc}},
		{name: "links", raw: links, want: []protocol.Location{loc}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResultToLocations(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultToCodeActions(t *testing.T) {
	raw := json.RawMessage(`[
		{"title": "Organize imports", "command": "organize", "arguments": ["x"]},
		{"title": "Fix", "kind": "quickfix", "command": {"title": "Fix", "command": "fix"}}
	]`)

	actions, err := ResultToCodeActions(raw)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "Organize imports", actions[0].Title)
	require.NotNil(t, actions[0].Command)
	assert.Equal(t, "organize", actions[0].Command.Command)
	assert.Equal(t, []interface{}{"x"}, actions[0].Command.Arguments)

	assert.Equal(t, "Fix", actions[1].Title)
	assert.Equal(t, protocol.QuickFix, actions[1].Kind)
	require.NotNil(t, actions[1].Command)
	assert.Equal(t, "fix", actions[1].Command.Command)

	empty, err := ResultToCodeActions(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResultToSymbols(t *testing.T) {
	symbols, err := ResultToSymbols(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.NotNil(t, symbols)
	assert.Empty(t, symbols)

	symbols, err = ResultToSymbols(json.RawMessage(`[{"name": "Foo", "kind": 5, "location": {"uri": "file:///ws/a.go", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}}}]`))
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "Foo", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindClass, symbols[0].Kind)

	_, err = ResultToSymbols(json.RawMessage(`{"name": "Foo"}`))
	assert.Error(t, err)
}

func TestResultToTextEdits(t *testing.T) {
	edits, err := ResultToTextEdits(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, edits)

	edits, err = ResultToTextEdits(json.RawMessage(`[{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 1}}, "newText": "x"}]`))
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "x", edits[0].NewText)
}

func TestResultToValue(t *testing.T) {
	hover, err := ResultToValue[protocol.Hover](json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, hover)

	hover, err = ResultToValue[protocol.Hover](json.RawMessage(`{"contents": {"kind": "markdown", "value": "doc"}}`))
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "doc", hover.Contents.Value)

	_, err = ResultToValue[protocol.Hover](json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestResultToRawMessage(t *testing.T) {
	assert.Nil(t, ResultToRawMessage(nil))
	assert.Nil(t, ResultToRawMessage(json.RawMessage(" null ")))
	assert.Equal(t, json.RawMessage(`{"ok":true}`), ResultToRawMessage(json.RawMessage(`{"ok":true}`)))
}
