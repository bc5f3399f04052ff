package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

// chunkRecords turns a record-list JSON document into chunks. Each list item
// yields one or more chunks: its "text" field when present, otherwise the
// whole item rendered as indented JSON.
func (l *Loader) chunkRecords(data []byte, base map[string]any) ([]pending, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode record list: %w", err)
		}
		var out []pending
		for idx, raw := range items {
			out = append(out, l.chunkRecord(idx, raw, base)...)
		}
		return out, nil
	case '{':
		return l.chunkWhole(indentJSON(data), base), nil
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode scalar: %w", err)
		}
		return l.chunkWhole(fmt.Sprint(v), base), nil
	}
}

func (l *Loader) chunkRecord(idx int, raw json.RawMessage, base map[string]any) []pending {
	md := merge(base, map[string]any{
		chunk.KeyDataType:  chunk.DataTypeMedication,
		chunk.KeyItemIndex: idx,
	})

	var content string
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		content = textField(fields["text"])
		if content == "" {
			content = indentJSON(raw)
		}
		if itemMeta := decodeObject(fields["metadata"]); itemMeta != nil {
			for k, v := range itemMeta {
				md[k] = v
			}
		}
		if id, ok := fields["id"]; ok {
			md[chunk.KeyDocumentID] = decodeValue(id)
		}
	} else {
		content = compactJSON(raw)
	}

	pieces := Split(content, l.ceiling)
	out := make([]pending, 0, len(pieces))
	for i, piece := range pieces {
		pmd := merge(md)
		pmd["item_chunk_index"] = i
		pmd[chunk.KeyTotalChunks] = len(pieces)
		out = append(out, pending{content: piece, metadata: pmd})
	}
	return out
}

func (l *Loader) chunkWhole(content string, base map[string]any) []pending {
	pieces := Split(content, l.ceiling)
	out := make([]pending, 0, len(pieces))
	for _, piece := range pieces {
		md := merge(base, map[string]any{
			chunk.KeyDataType:    chunk.DataTypeMedication,
			chunk.KeyTotalChunks: len(pieces),
		})
		out = append(out, pending{content: piece, metadata: md})
	}
	return out
}

func textField(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func decodeObject(raw json.RawMessage) map[string]any {
	if raw == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

func decodeValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// indentJSON keeps the source key order, unlike a map round trip.
func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
