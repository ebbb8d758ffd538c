package sim

import (
	"fmt"
	"sync"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/internal/log"
)

// Report is one transmitted HID report.
type Report struct {
	At   uint32
	Kind hid.ReportKind
	Data []byte
}

func (r Report) String() string {
	return fmt.Sprintf("%8dms %s", r.At, hid.Describe(r.Kind, r.Data))
}

// Recorder is a Transport that keeps every report and hands it to an
// optional callback.
type Recorder struct {
	clock func() uint32
	raw   log.ReportLogger

	mu       sync.Mutex
	reports  []Report
	keep     int
	onReport func(Report)
}

// NewRecorder stamps reports with clock. raw may be nil.
func NewRecorder(clock func() uint32, raw log.ReportLogger) *Recorder {
	if raw == nil {
		raw = log.NewReportLogger(nil)
	}
	return &Recorder{clock: clock, raw: raw}
}

// OnReport sets a callback run for every report.
func (r *Recorder) OnReport(fn func(Report)) {
	r.mu.Lock()
	r.onReport = fn
	r.mu.Unlock()
}

// KeepLast bounds the recorded history to the n most recent reports. Zero
// keeps everything.
func (r *Recorder) KeepLast(n int) {
	r.mu.Lock()
	r.keep = n
	r.trimLocked()
	r.mu.Unlock()
}

func (r *Recorder) trimLocked() {
	if r.keep > 0 && len(r.reports) > r.keep {
		r.reports = append(r.reports[:0], r.reports[len(r.reports)-r.keep:]...)
	}
}

func (r *Recorder) Transmit(kind hid.ReportKind, data []byte) error {
	rep := Report{At: r.clock(), Kind: kind, Data: append([]byte(nil), data...)}
	r.raw.Log(rep.At, kind.String(), rep.Data)

	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.trimLocked()
	fn := r.onReport
	r.mu.Unlock()

	if fn != nil {
		fn(rep)
	}
	return nil
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}
