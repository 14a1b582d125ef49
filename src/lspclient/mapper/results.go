package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"
)

var _null = []byte("null")

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, _null)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// ResultToCompletionList normalizes a completion result, which may be null, a CompletionItem[] or a CompletionList.
func ResultToCompletionList(raw json.RawMessage) (*protocol.CompletionList, error) {
	if isNull(raw) {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	if isArray(raw) {
		items := []protocol.CompletionItem{}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, wrapErrParse(err)
		}
		return &protocol.CompletionList{Items: items}, nil
	}

	list := protocol.CompletionList{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, wrapErrParse(err)
	}
	if list.Items == nil {
		list.Items = []protocol.CompletionItem{}
	}
	return &list, nil
}

// ResultToLocations normalizes a definition or references result: null, Location, Location[] or LocationLink[].
func ResultToLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if isNull(raw) {
		return []protocol.Location{}, nil
	}

	if !isArray(raw) {
		loc := protocol.Location{}
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil, wrapErrParse(err)
		}
		return []protocol.Location{loc}, nil
	}

	elements := []json.RawMessage{}
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, wrapErrParse(err)
	}

	locations := make([]protocol.Location, 0, len(elements))
	for _, element := range elements {
		probe := map[string]json.RawMessage{}
		if err := json.Unmarshal(element, &probe); err != nil {
			return nil, wrapErrParse(err)
		}

		if _, ok := probe["targetUri"]; ok {
			link := protocol.LocationLink{}
			if err := json.Unmarshal(element, &link); err != nil {
				return nil, wrapErrParse(err)
			}
			locations = append(locations, protocol.Location{
				URI:   link.TargetURI,
				Range: link.TargetSelectionRange,
			})
			continue
		}

		loc := protocol.Location{}
		if err := json.Unmarshal(element, &loc); err != nil {
			return nil, wrapErrParse(err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// ResultToCodeActions normalizes a code action result whose elements are either Command or CodeAction.
// A bare Command is wrapped into a CodeAction with the same title.
func ResultToCodeActions(raw json.RawMessage) ([]protocol.CodeAction, error) {
	if isNull(raw) {
		return []protocol.CodeAction{}, nil
	}

	elements := []json.RawMessage{}
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, wrapErrParse(err)
	}

	actions := make([]protocol.CodeAction, 0, len(elements))
	for _, element := range elements {
		probe := map[string]json.RawMessage{}
		if err := json.Unmarshal(element, &probe); err != nil {
			return nil, wrapErrParse(err)
		}

		if cmd, ok := probe["command"]; ok && len(bytes.TrimSpace(cmd)) > 0 && bytes.TrimSpace(cmd)[0] == '"' {
			command := protocol.Command{}
			if err := json.Unmarshal(element, &command); err != nil {
				return nil, wrapErrParse(err)
			}
			actions = append(actions, protocol.CodeAction{
				Title:   command.Title,
				Command: &command,
			})
			continue
		}

		action := protocol.CodeAction{}
		if err := json.Unmarshal(element, &action); err != nil {
			return nil, wrapErrParse(err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// ResultToSymbols normalizes a workspace symbol result. Null becomes an empty slice.
func ResultToSymbols(raw json.RawMessage) ([]protocol.SymbolInformation, error) {
	if isNull(raw) {
		return []protocol.SymbolInformation{}, nil
	}
	symbols := []protocol.SymbolInformation{}
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, wrapErrParse(err)
	}
	return symbols, nil
}

// ResultToTextEdits normalizes a formatting result. Null becomes an empty slice.
func ResultToTextEdits(raw json.RawMessage) ([]protocol.TextEdit, error) {
	if isNull(raw) {
		return []protocol.TextEdit{}, nil
	}
	edits := []protocol.TextEdit{}
	if err := json.Unmarshal(raw, &edits); err != nil {
		return nil, wrapErrParse(err)
	}
	return edits, nil
}

// ResultToValue decodes a result that is either null or an object of type T.
func ResultToValue[T any](raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", value, wrapErrParse(err))
	}
	return &value, nil
}

// ResultToRawMessage returns raw unless it is null, in which case it returns nil.
func ResultToRawMessage(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	return raw
}
