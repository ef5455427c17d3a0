package sse

import "strings"

// Decoder assembles complete frames from text chunks arriving in order.
// A frame is everything up to a blank-line separator (two consecutive line
// terminators). Input not yet followed by a separator is buffered and
// prepended to the next chunk, so correctness never depends on where a
// chunk boundary falls relative to line or field boundaries.
//
// A Decoder is single-use: one per stream session.
type Decoder struct {
	buf strings.Builder
}

// NewDecoder creates a Decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns all frames completed by it, in order.
// CRLF sequences are normalized to LF before splitting; a CR split from its
// LF by a chunk boundary is joined once the LF arrives.
func (d *Decoder) Feed(chunk string) []string {
	d.buf.WriteString(chunk)
	text := strings.ReplaceAll(d.buf.String(), "\r\n", "\n")

	var frames []string
	for {
		idx := strings.Index(text, "\n\n")
		if idx < 0 {
			break
		}
		if frame := text[:idx]; frame != "" {
			frames = append(frames, frame)
		}
		text = text[idx+2:]
	}

	d.buf.Reset()
	d.buf.WriteString(text)
	return frames
}

// Flush returns the residual buffer as a final frame. It reports false when
// the residue is empty or blank. Called when the transport signals
// end-of-stream, so a trailing frame without its separator is not lost.
func (d *Decoder) Flush() (string, bool) {
	rest := d.buf.String()
	d.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return rest, true
}
