package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{name: "status with icon", write: func(w *Writer) { w.Status("→", "routing") }, want: "→ routing\n"},
		{name: "status without icon", write: func(w *Writer) { w.Status("", "detail") }, want: "   detail\n"},
		{name: "success", write: func(w *Writer) { w.Successf("loaded %d chunks", 12) }, want: "✓ loaded 12 chunks\n"},
		{name: "warning", write: func(w *Writer) { w.Warningf("%s missing", "cedar") }, want: "! cedar missing\n"},
		{name: "error", write: func(w *Writer) { w.Errorf("bad %s", "query") }, want: "✗ bad query\n"},
		{name: "heading", write: func(w *Writer) { w.Headingf("%d results", 3) }, want: "3 results\n"},
		{name: "dim", write: func(w *Writer) { w.Dim("quiet") }, want: "quiet\n"},
		{name: "newline", write: func(w *Writer) { w.Newline() }, want: "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer over a buffer
			buf := &bytes.Buffer{}
			w := New(buf)

			// When: writing
			tt.write(w)

			// Then: the plain text is produced
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_KeyValue_Aligns(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.KeyValue("chunks", 42)

	assert.Equal(t, "  chunks:          42\n", buf.String())
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("line1\nline2")

	assert.Equal(t, "\n  line1\n  line2\n\n", buf.String())
}

func TestColorEnabled(t *testing.T) {
	// Given: a non-file writer
	// Then: color is disabled
	assert.False(t, ColorEnabled(&bytes.Buffer{}))

	// Given: a regular file
	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer func() { _ = f.Close() }()

	// Then: it is not a terminal
	assert.False(t, ColorEnabled(f))
}

func TestColorEnabled_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.False(t, ColorEnabled(os.Stdout))
	assert.False(t, New(os.Stdout).UseColor())
}

func TestWriter_Paint(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &Writer{out: buf, useColor: true}

	w.Success("ok")

	assert.Equal(t, "\033[32m✓\033[0m ok\n", buf.String())
	assert.False(t, NewPlain(buf).UseColor())
}
