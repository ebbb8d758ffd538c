package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// ReportLogger writes one line per transmitted HID report.
type ReportLogger interface {
	Log(at uint32, kind string, data []byte)
}

type reportLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewReportLogger returns a ReportLogger writing to w. A nil w discards.
func NewReportLogger(w io.Writer) ReportLogger {
	return &reportLogger{w: w}
}

// Log emits the cycle time, report kind and a hex dump of data.
func (r *reportLogger) Log(at uint32, kind string, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}
	line := fmt.Sprintf("%8dms %-8s %s\n", at, kind, Hex(data))

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}

// Hex formats data as space separated lowercase byte pairs.
func Hex(data []byte) string {
	const hexdigits = "0123456789abcdef"
	var buf bytes.Buffer
	buf.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte(hexdigits[b>>4])
		buf.WriteByte(hexdigits[b&0x0f])
	}
	return buf.String()
}
