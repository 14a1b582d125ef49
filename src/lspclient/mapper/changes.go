package mapper

import (
	"strings"

	"github.com/uber/lsp-client/src/lspclient/entity"
	lsperrors "github.com/uber/lsp-client/src/lspclient/internal/errors"
	offsets "github.com/uber/lsp-client/src/lspclient/internal/protocol"
	"go.lsp.dev/protocol"
)

// TextChangesToContentChangeEvents converts an ordered list of edits on text into incremental change events.
// Each edit is applied before the next one is mapped, so every range refers to the text produced so far.
// The returned string is the text after all edits.
func TextChangesToContentChangeEvents(uri protocol.DocumentURI, text string, changes []entity.TextChange) ([]protocol.TextDocumentContentChangeEvent, string, error) {
	events := make([]protocol.TextDocumentContentChangeEvent, 0, len(changes))
	current := text
	for _, change := range changes {
		end := change.Offset + len(change.RemovedText)
		if change.Offset < 0 || end > len(current) || current[change.Offset:end] != change.RemovedText {
			return nil, "", &lsperrors.InvalidEditError{
				URI:    uri,
				Offset: change.Offset,
				Length: len(change.RemovedText),
				Size:   len(current),
			}
		}

		m := offsets.NewTextOffsetMapper([]byte(current))
		start, err := m.OffsetPosition(change.Offset)
		if err != nil {
			return nil, "", err
		}

		rng := protocol.Range{
			Start: start,
			End:   EndPosition(start, change.RemovedText),
		}
		events = append(events, protocol.TextDocumentContentChangeEvent{
			Range:       &rng,
			RangeLength: uint32(offsets.UTF16Len([]byte(change.RemovedText))),
			Text:        change.InsertedText,
		})

		current = current[:change.Offset] + change.InsertedText + current[end:]
	}
	return events, current, nil
}

// EndPosition returns the position reached by walking over removed, starting at start.
func EndPosition(start protocol.Position, removed string) protocol.Position {
	lines := strings.Count(removed, "\n")
	if lines == 0 {
		return protocol.Position{
			Line:      start.Line,
			Character: start.Character + uint32(offsets.UTF16Len([]byte(removed))),
		}
	}
	tail := removed[strings.LastIndex(removed, "\n")+1:]
	return protocol.Position{
		Line:      start.Line + uint32(lines),
		Character: uint32(offsets.UTF16Len([]byte(tail))),
	}
}

// FullContentChangeEvent returns a single change event carrying the whole document.
func FullContentChangeEvent(text string) []protocol.TextDocumentContentChangeEvent {
	return []protocol.TextDocumentContentChangeEvent{{Text: text}}
}
