package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapprof/heapprof/internal/symbol"
)

func stack(names ...string) symbol.ResolvedStack {
	var s symbol.ResolvedStack
	for _, n := range names {
		s = append(s, symbol.Group{{RawName: n, HasName: true}})
	}
	return s
}

func TestWriteTextOneLinePerEntry(t *testing.T) {
	r := New([]Entry{
		{Stack: stack("a", "b"), Bytes: 32},
		{Stack: stack("c"), Bytes: 64},
	})

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "32")
	assert.Contains(t, lines[1], "64")
}

func TestWriteFlamegraphFormat(t *testing.T) {
	// stack() is innermost-first: "inner" then "outer".
	r := New([]Entry{
		{Stack: stack("inner", "outer"), Bytes: 100},
	})

	var buf bytes.Buffer
	require.NoError(t, r.WriteFlamegraph(&buf))

	out := buf.String()
	assert.Contains(t, out, "# hash=true")
	assert.Contains(t, out, "# count_name=bytes")
	assert.Contains(t, out, "outer;inner 100")
}

func TestWriteFlamegraphEmptyReportEmitsNothing(t *testing.T) {
	r := New(nil)
	var buf bytes.Buffer
	require.NoError(t, r.WriteFlamegraph(&buf))
	assert.Empty(t, buf.String())
}

func TestWriteFlamegraphJoinsInlinedGroupWithSlash(t *testing.T) {
	s := symbol.ResolvedStack{
		{{RawName: "inlinee", HasName: true}, {RawName: "inliner", HasName: true}},
	}
	r := New([]Entry{{Stack: s, Bytes: 8}})

	var buf bytes.Buffer
	require.NoError(t, r.WriteFlamegraph(&buf))
	assert.Contains(t, buf.String(), "inliner/inlinee 8")
}

func TestWriteFlamegraphUnknownAndNonUTF8(t *testing.T) {
	s := symbol.ResolvedStack{
		{{HasName: false}},
		{{RawName: string([]byte{0xff}), HasName: true}},
	}
	r := New([]Entry{{Stack: s, Bytes: 1}})

	var buf bytes.Buffer
	require.NoError(t, r.WriteFlamegraph(&buf))
	assert.Contains(t, buf.String(), "NonUtf8Name;Unknown 1")
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestWriteTextPropagatesWriterError(t *testing.T) {
	r := New([]Entry{{Stack: stack("a"), Bytes: 1}})
	assert.Error(t, r.WriteText(errWriter{}))
}

func TestHandleCloseInvokesCallbackOnce(t *testing.T) {
	r := New(nil)
	calls := 0
	h := NewHandle(r, func(*Report) { calls++ })

	assert.Same(t, r, h.Report())
	h.Close()
	h.Close()
	assert.Equal(t, 1, calls)
}
