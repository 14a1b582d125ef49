package mapper

import (
	"fmt"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/uber/lsp-client/src/lspclient/entity"
	offsets "github.com/uber/lsp-client/src/lspclient/internal/protocol"
	"go.lsp.dev/protocol"
)

// DiffTextChanges computes the ordered edits that turn before into after.
// Offsets of each change refer to the text produced by the changes before it.
func DiffTextChanges(before, after string) []entity.TextChange {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupEfficiency(dmp.DiffMain(before, after, false))
	return DiffsToTextChanges(diffs)
}

// DiffsToTextChanges converts diffs into sequential text changes. A deletion directly followed by an
// insertion becomes one replacement.
func DiffsToTextChanges(diffs []diffmatchpatch.Diff) []entity.TextChange {
	changes := make([]entity.TextChange, 0, len(diffs))
	offset := 0
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			offset += len(d.Text)
		case diffmatchpatch.DiffDelete:
			change := entity.TextChange{Offset: offset, RemovedText: d.Text}
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				change.InsertedText = diffs[i+1].Text
				i++
			}
			changes = append(changes, change)
			offset += len(change.InsertedText)
		case diffmatchpatch.DiffInsert:
			changes = append(changes, entity.TextChange{Offset: offset, InsertedText: d.Text})
			offset += len(d.Text)
		}
	}
	return changes
}

// ApplyTextEdits applies non-overlapping text edits, all expressed against text, and returns the result.
func ApplyTextEdits(text string, edits []protocol.TextEdit) (string, error) {
	m := offsets.NewTextOffsetMapper([]byte(text))
	type span struct {
		start, end int
		text       string
	}
	spans := make([]span, 0, len(edits))
	for _, edit := range edits {
		start, err := m.PositionOffset(edit.Range.Start)
		if err != nil {
			return "", err
		}
		end, err := m.PositionOffset(edit.Range.End)
		if err != nil {
			return "", err
		}
		spans = append(spans, span{start: start, end: end, text: edit.NewText})
	}

	// Apply from the back so earlier offsets stay valid.
	// Inserts at the same position keep their relative order.
	for i, j := 0, len(spans)-1; i < j; i, j = i+1, j-1 {
		spans[i], spans[j] = spans[j], spans[i]
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start > spans[j].start
	})

	result := text
	limit := len(text)
	for _, s := range spans {
		if s.start > s.end || s.end > limit {
			return "", fmt.Errorf("overlapping or inverted edit at %d-%d", s.start, s.end)
		}
		result = result[:s.start] + s.text + result[s.end:]
		limit = s.start
	}
	return result, nil
}
