// Package wordstream re-emits a finished completion as a sequence of small
// text chunks in the line format understood by the docs chat widget:
//
//	0:"<escaped chunk>"\n
//
// How the text was obtained is decoupled from how it is delivered: Words
// produces chunks on demand and Emit drains any producer into a Sink.
package wordstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// DefaultDelay is the pause between chunks that gives the widget its typing
// effect.
const DefaultDelay = 10 * time.Millisecond

const (
	linePrefix = `0:"`
	lineSuffix = `"`
)

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// ErrMalformedLine is returned by Decode for lines not in the chunk format.
var ErrMalformedLine = errors.New("malformed stream line")

// Words splits text on single spaces. The first chunk is the first word as is;
// every later chunk carries one leading space, so concatenating all chunks
// reproduces text exactly.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i, w := range strings.Split(text, " ") {
			if i > 0 {
				w = " " + w
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Encode renders one chunk as a wire line, including the trailing newline.
func Encode(chunk string) string {
	return linePrefix + escaper.Replace(chunk) + lineSuffix + "\n"
}

// Decode parses one wire line (with or without its trailing newline) back to
// the chunk it encodes.
func Decode(line string) (string, error) {
	line = strings.TrimSuffix(line, "\n")
	if !strings.HasPrefix(line, linePrefix) || !strings.HasSuffix(line, lineSuffix) || len(line) < len(linePrefix)+len(lineSuffix) {
		return "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	body := line[len(linePrefix) : len(line)-len(lineSuffix)]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '"' {
			return "", fmt.Errorf("%w: unescaped quote", ErrMalformedLine)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(body) {
			return "", fmt.Errorf("%w: dangling escape", ErrMalformedLine)
		}
		switch body[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrMalformedLine, body[i])
		}
	}
	return b.String(), nil
}

// Sink receives encoded chunks. WriteChunk must deliver the chunk to the peer
// before returning; an error means the peer is gone.
type Sink interface {
	WriteChunk(chunk string) error
}

// BufferedSink writes chunks to a buffered writer and flushes after each one.
type BufferedSink struct {
	W *bufio.Writer
}

// WriteChunk implements Sink.
func (s BufferedSink) WriteChunk(chunk string) error {
	if _, err := s.W.WriteString(Encode(chunk)); err != nil {
		return err
	}
	return s.W.Flush()
}

// Emit drains chunks into sink, pausing delay between consecutive chunks. It
// stops at the first sink error or when ctx is cancelled, without pulling
// further chunks from the producer. It returns the number of chunks written.
func Emit(ctx context.Context, chunks iter.Seq[string], sink Sink, delay time.Duration) (int, error) {
	var timer *time.Timer
	if delay > 0 {
		timer = time.NewTimer(delay)
		timer.Stop()
		defer timer.Stop()
	}

	written := 0
	for chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		if written > 0 && timer != nil {
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				return written, ctx.Err()
			case <-timer.C:
			}
		}

		if err := sink.WriteChunk(chunk); err != nil {
			return written, fmt.Errorf("write chunk: %w", err)
		}
		written++
	}
	return written, nil
}
