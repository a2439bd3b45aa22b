// Package profiler records per-label execution times of task bodies.
//
// A Profiler keeps at most MaxEntries labels in a fixed table. Recording a
// duration for a label that is not yet in the table adds it; once the table
// is full, new labels are counted as dropped.
package profiler

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

const (
	// MaxEntries is the number of distinct labels a Profiler tracks.
	MaxEntries = 128
	// MaxLabelLength is the label length; longer labels are truncated.
	MaxLabelLength = 63
)

// Entry holds the timings recorded for one label.
type Entry struct {
	Label string
	Calls uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Average returns the mean duration per call.
func (e Entry) Average() time.Duration {
	if e.Calls == 0 {
		return 0
	}
	return e.Total / time.Duration(e.Calls) //nolint:gosec // call counts stay far below MaxInt64
}

func (e *Entry) add(d time.Duration) {
	if e.Calls == 0 || d < e.Min {
		e.Min = d
	}
	if d > e.Max {
		e.Max = d
	}
	e.Total += d
	e.Calls++
}

// SortOrder selects the ordering of a Report. Every order is descending.
type SortOrder int

const (
	ByTotal SortOrder = iota
	ByAverage
	ByCalls
)

// Report is a sorted copy of the profiler table.
type Report struct {
	Entries []Entry
	Session time.Duration
	Dropped uint64
}

// WriteTo writes the report as an aligned table.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "session\t%s\t\n", r.Session.Round(time.Microsecond))
	fmt.Fprintf(tw, "entries\t%d\t\n", len(r.Entries))
	if r.Dropped > 0 {
		fmt.Fprintf(tw, "dropped\t%d\t\n", r.Dropped)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "label\tcalls\ttotal\tavg\tmin\tmax\t")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			e.Label, e.Calls, e.Total, e.Average(), e.Min, e.Max)
	}

	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Profiler is a fixed-capacity timing table. It is safe for concurrent use.
type Profiler struct {
	mu      sync.Mutex
	entries [MaxEntries]Entry
	n       int
	start   time.Time

	enabled atomic.Bool
	dropped atomic.Uint64
}

// New creates an enabled Profiler.
func New() *Profiler {
	p := &Profiler{start: time.Now()}
	p.enabled.Store(true)
	return p
}

// SetEnabled turns recording on or off. Existing entries are kept.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Enabled reports whether recording is on.
func (p *Profiler) Enabled() bool {
	return p.enabled.Load()
}

// Record adds one call of duration d to label. It returns false if the
// profiler is disabled or the table has no room for a new label.
func (p *Profiler) Record(label string, d time.Duration) bool {
	if !p.enabled.Load() {
		return false
	}
	if len(label) > MaxLabelLength {
		label = label[:MaxLabelLength]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		if p.entries[i].Label == label {
			p.entries[i].add(d)
			return true
		}
	}

	if p.n == MaxEntries {
		p.dropped.Add(1)
		return false
	}

	e := &p.entries[p.n]
	*e = Entry{Label: label}
	e.add(d)
	p.n++

	return true
}

// Start begins timing label and returns the function that stops it:
//
//	defer p.Start("dense_0")()
func (p *Profiler) Start(label string) func() {
	begin := time.Now()
	return func() {
		p.Record(label, time.Since(begin))
	}
}

// Wrap returns fn timed under label. A nil profiler returns fn unchanged.
func Wrap(p *Profiler, label string, fn func() error) func() error {
	if p == nil || fn == nil {
		return fn
	}
	return func() error {
		begin := time.Now()
		err := fn()
		p.Record(label, time.Since(begin))
		return err
	}
}

// Entry returns the timings of label.
func (p *Profiler) Entry(label string) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		if p.entries[i].Label == label {
			return p.entries[i], true
		}
	}
	return Entry{}, false
}

// Len returns the number of labels in the table.
func (p *Profiler) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// HasCapacity reports whether a new label can still be added.
func (p *Profiler) HasCapacity() bool {
	return p.Len() < MaxEntries
}

// Report returns a copy of the table sorted by order.
func (p *Profiler) Report(order SortOrder) Report {
	p.mu.Lock()
	entries := make([]Entry, p.n)
	copy(entries, p.entries[:p.n])
	session := time.Since(p.start)
	p.mu.Unlock()

	var less func(a, b Entry) bool
	switch order {
	case ByAverage:
		less = func(a, b Entry) bool { return a.Average() > b.Average() }
	case ByCalls:
		less = func(a, b Entry) bool { return a.Calls > b.Calls }
	default:
		less = func(a, b Entry) bool { return a.Total > b.Total }
	}
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })

	return Report{
		Entries: entries,
		Session: session,
		Dropped: p.dropped.Load(),
	}
}

// Reset clears the table and restarts the session clock.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.entries[:p.n])
	p.n = 0
	p.start = time.Now()
	p.dropped.Store(0)
}
