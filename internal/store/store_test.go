package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "browser_agent_nodes"},
		{name: "public.docs"},
		{name: "_private"},
		{name: "Docs2"},
		{name: "", wantErr: true},
		{name: "1docs", wantErr: true},
		{name: "docs; drop table x", wantErr: true},
		{name: "a.b.c", wantErr: true},
		{name: `docs"`, wantErr: true},
		{name: "docs?select=*", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRowFromRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want Row
	}{
		{
			name: "sql values",
			rec: map[string]any{
				"id":         int64(42),
				"content":    []byte("body"),
				"metadata":   []byte(`{"source_label":"agents.md","headers":["Agents"]}`),
				"similarity": float64(0.8),
			},
			want: Row{
				ID:         "42",
				Content:    "body",
				Metadata:   map[string]any{"source_label": "agents.md", "headers": []any{"Agents"}},
				Similarity: 0.8,
			},
		},
		{
			name: "json values",
			rec: map[string]any{
				"id":         "9f1c",
				"text":       "raw text",
				"metadata":   map[string]any{"url": "https://mastra.ai"},
				"similarity": json.Number("0.55"),
			},
			want: Row{
				ID:         "9f1c",
				Text:       "raw text",
				Metadata:   map[string]any{"url": "https://mastra.ai"},
				Similarity: 0.55,
			},
		},
		{
			name: "json number id",
			rec:  map[string]any{"id": json.Number("7")},
			want: Row{ID: "7", Metadata: map[string]any{}},
		},
		{
			name: "null and malformed metadata",
			rec:  map[string]any{"metadata": []byte("not json")},
			want: Row{Metadata: map[string]any{}},
		},
		{
			name: "json null metadata",
			rec:  map[string]any{"metadata": []byte("null")},
			want: Row{Metadata: map[string]any{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rowFromRecord(tt.rec))
		})
	}
}
