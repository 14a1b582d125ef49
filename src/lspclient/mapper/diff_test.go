package mapper

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestDiffTextChanges(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
	}{
		{name: "identical", before: "abc", after: "abc"},
		{name: "append", before: "abc", after: "abc\ndef"},
		{name: "replace middle", before: "hello world", after: "hello there world"},
		{name: "delete all", before: "abc\ndef\n", after: ""},
		{name: "multi line rewrite", before: "package a\n\nfunc A() {}\n", after: "package b\n\nfunc B() int { return 1 }\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			changes := DiffTextChanges(tt.before, tt.after)
			if tt.before == tt.after {
				assert.Empty(t, changes)
			}

			_, text, err := TextChangesToContentChangeEvents(uri.File("/ws/a.go"), tt.before, changes)
			require.NoError(t, err)
			assert.Equal(t, tt.after, text)
		})
	}
}

func TestDiffsToTextChangesMergesReplacement(t *testing.T) {
	diffs := []diffmatchpatch.Diff{
		{Type: diffmatchpatch.DiffEqual, Text: "a"},
		{Type: diffmatchpatch.DiffDelete, Text: "c"},
		{Type: diffmatchpatch.DiffInsert, Text: "b"},
		{Type: diffmatchpatch.DiffEqual, Text: "d"},
		{Type: diffmatchpatch.DiffInsert, Text: "e"},
	}

	assert.Equal(t, []entity.TextChange{
		{Offset: 1, RemovedText: "c", InsertedText: "b"},
		{Offset: 3, InsertedText: "e"},
	}, DiffsToTextChanges(diffs))
}

func TestApplyTextEdits(t *testing.T) {
	at := func(line, char uint32) protocol.Position {
		return protocol.Position{Line: line, Character: char}
	}

	tests := []struct {
		name    string
		text    string
		edits   []protocol.TextEdit
		want    string
		wantErr bool
	}{
		{
			name: "no edits",
			text: "abc",
			want: "abc",
		},
		{
			name: "unordered edits",
			text: "abc\ndef",
			edits: []protocol.TextEdit{
				{Range: protocol.Range{Start: at(1, 0), End: at(1, 1)}, NewText: "D"},
				{Range: protocol.Range{Start: at(0, 0), End: at(0, 1)}, NewText: "A"},
			},
			want: "Abc\nDef",
		},
		{
			name: "inserts at same position keep order",
			text: "x",
			edits: []protocol.TextEdit{
				{Range: protocol.Range{Start: at(0, 0), End: at(0, 0)}, NewText: "1"},
				{Range: protocol.Range{Start: at(0, 0), End: at(0, 0)}, NewText: "2"},
			},
			want: "12x",
		},
		{
			name: "overlapping",
			text: "abcdef",
			edits: []protocol.TextEdit{
				{Range: protocol.Range{Start: at(0, 0), End: at(0, 3)}, NewText: ""},
				{Range: protocol.Range{Start: at(0, 2), End: at(0, 4)}, NewText: ""},
			},
			wantErr: true,
		},
		{
			name: "out of range",
			text: "abc",
			edits: []protocol.TextEdit{
				{Range: protocol.Range{Start: at(4, 0), End: at(4, 1)}, NewText: ""},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTextEdits(tt.text, tt.edits)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
