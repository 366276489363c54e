package perf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"run", "time", "sum", "avg", "med", "sd"}

// WriteCSV writes one row per retained sample, oldest first, with the
// running sum, average, median and sample standard deviation of the samples
// up to and including that row. Times are in seconds. The run index starts
// at the number of samples already evicted from the history.
func (m *Monitor) WriteCSV(w io.Writer, header bool) error {
	m.mu.Lock()
	samples := seconds(m.ordered())
	first := m.runs - int64(len(m.samples))
	m.mu.Unlock()

	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(CSVHeader); err != nil {
			return err
		}
	}
	for i := range samples {
		state := samples[:i+1]
		sd := 0.0
		if len(state) > 1 {
			sd = stat.StdDev(state, nil)
		}
		sum := floats.Sum(state)
		row := []string{
			strconv.FormatInt(first+int64(i), 10),
			formatSeconds(samples[i]),
			formatSeconds(sum),
			formatSeconds(sum / float64(len(state))),
			formatSeconds(median(state)),
			formatSeconds(sd),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the history to filename. With appendRows the rows are added
// to the end of an existing file; the header is written only when the file is
// empty.
func (m *Monitor) SaveCSV(filename string, appendRows bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendRows {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(filename, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening performance file %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("inspecting performance file %s: %w", filename, err)
	}
	if err := m.WriteCSV(f, info.Size() == 0); err != nil {
		f.Close()
		return fmt.Errorf("writing performance file %s: %w", filename, err)
	}
	return f.Close()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
