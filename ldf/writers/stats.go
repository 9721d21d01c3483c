package writers

import (
	"fmt"
	"io"
	"time"

	"github.com/wbrown/janus-ldf/ldf/sparql"
)

// StatsWriter writes a CSV of result numbers and the delay in milliseconds
// since the writer was created, followed by a TOTAL line. It is meant for
// measuring the arrival of results.
type StatsWriter struct {
	out   *errWriter
	now   func() time.Time
	start time.Time
	count int
}

// NewStatsWriter creates a stats writer that starts timing immediately.
func NewStatsWriter(w io.Writer) *StatsWriter {
	return newStatsWriter(w, time.Now)
}

func newStatsWriter(w io.Writer, now func() time.Time) *StatsWriter {
	return &StatsWriter{out: &errWriter{w: w}, now: now, start: now()}
}

func (s *StatsWriter) WriteHead([]string) error {
	s.out.WriteString("Result,Delay (ms)\n")
	return s.out.err
}

func (s *StatsWriter) WriteRow(sparql.Row) error { return s.record() }

func (s *StatsWriter) WriteBoolean(bool) error { return s.record() }

func (s *StatsWriter) record() error {
	s.count++
	s.out.WriteString(fmt.Sprintf("%d,%s\n", s.count, s.elapsed()))
	return s.out.err
}

func (s *StatsWriter) Flush() error {
	s.out.WriteString(fmt.Sprintf("TOTAL,%s\n", s.elapsed()))
	return s.out.err
}

func (s *StatsWriter) elapsed() string {
	ms := float64(s.now().Sub(s.start)) / float64(time.Millisecond)
	return fmt.Sprintf("%g", ms)
}
