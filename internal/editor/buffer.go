package editor

import "strings"

// tabGlyph stands in for a tab inside the textarea, which would otherwise
// expand tabs to spaces.
const tabGlyph = '␉'

// bufferCodec converts between file text and textarea contents. The textarea
// only knows "\n" line breaks, so CRLF files are converted on the way in and
// restored on save.
type bufferCodec struct {
	crlf bool
}

func newBufferCodec(text string) bufferCodec {
	n := strings.Count(text, "\r\n")
	return bufferCodec{crlf: n > 0 && n == strings.Count(text, "\n")}
}

func (c bufferCodec) toBuffer(text string) string {
	if c.crlf {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	return strings.ReplaceAll(text, "\t", string(tabGlyph))
}

func (c bufferCodec) toFile(buf string) string {
	buf = strings.ReplaceAll(buf, string(tabGlyph), "\t")
	if c.crlf {
		buf = strings.ReplaceAll(buf, "\n", "\r\n")
	}
	return buf
}
