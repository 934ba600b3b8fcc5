package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter captures each chunk and the flushes between them.
type recordingWriter struct {
	chunks   []string
	flushes  int
	writeErr error
	flushErr error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	if r.writeErr != nil {
		return 0, r.writeErr
	}
	r.chunks = append(r.chunks, string(p))
	return len(p), nil
}

func (r *recordingWriter) Flush() error {
	if r.flushErr != nil {
		return r.flushErr
	}
	r.flushes++
	return nil
}

func TestEmitChunking(t *testing.T) {
	tests := []struct {
		name       string
		chunkSize  int
		text       string
		wantChunks []string
	}{
		{
			name:       "single byte chunks",
			chunkSize:  1,
			text:       "abc",
			wantChunks: []string{"a", "b", "c"},
		},
		{
			name:       "uneven tail",
			chunkSize:  2,
			text:       "abcde",
			wantChunks: []string{"ab", "cd", "e"},
		},
		{
			name:       "chunk larger than text",
			chunkSize:  64,
			text:       "short",
			wantChunks: []string{"short"},
		},
		{
			name:       "empty text",
			chunkSize:  1,
			text:       "",
			wantChunks: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			p := NewPacer(tt.chunkSize, 0)

			err := p.Emit(w, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunks, w.chunks)
			// One flush per chunk, so partial output is visible immediately.
			assert.Equal(t, len(tt.wantChunks), w.flushes)
		})
	}
}

func TestEmitStopsOnWriteError(t *testing.T) {
	w := &recordingWriter{writeErr: errors.New("peer closed")}
	p := NewPacer(1, 0)

	err := p.Emit(w, "abc")
	require.Error(t, err)
	assert.Empty(t, w.chunks)
}

func TestEmitStopsOnFlushError(t *testing.T) {
	w := &recordingWriter{flushErr: errors.New("broken pipe")}
	p := NewPacer(1, 0)

	err := p.Emit(w, "abc")
	require.Error(t, err)
	// The write landed, the flush failed, nothing further was attempted.
	assert.Equal(t, []string{"a"}, w.chunks)
}

func TestNewPacerClampsChunkSize(t *testing.T) {
	w := &recordingWriter{}
	p := NewPacer(0, 0)

	require.NoError(t, p.Emit(w, "xy"))
	assert.Equal(t, []string{"x", "y"}, w.chunks)
}
