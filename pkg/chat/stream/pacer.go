package stream

import (
	"io"
	"time"
)

// FlushWriter is the sink the pacer writes to. *bufio.Writer satisfies it,
// which is what a fasthttp body stream hands the worker.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Pacer emits text in small fixed-size chunks with a short delay between
// them, flushing after every chunk so partial output reaches the client
// while the rest is still pending. Chunk size and delay shape the "typing"
// effect only; they carry no semantics.
type Pacer struct {
	chunkSize int
	delay     time.Duration
}

func NewPacer(chunkSize int, delay time.Duration) *Pacer {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &Pacer{
		chunkSize: chunkSize,
		delay:     delay,
	}
}

// Emit streams text to w chunk by chunk. The first write or flush error is
// returned immediately: a failed sink means the consumer is gone, and
// pacing out the remainder would be pointless.
func (p *Pacer) Emit(w FlushWriter, text string) error {
	data := []byte(text)
	for start := 0; start < len(data); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[start:end]); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if p.delay > 0 && end < len(data) {
			time.Sleep(p.delay)
		}
	}
	return nil
}
