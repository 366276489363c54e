package perf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func recordSeconds(m *Monitor, secs ...int) {
	for _, s := range secs {
		m.Record(time.Duration(s) * time.Second)
	}
}

func TestMonitor_Empty(t *testing.T) {
	m := NewMonitor("stage", 3)
	if m.Len() != 0 || m.Count() != 0 {
		t.Fatalf("expected empty monitor")
	}
	if m.Average() != 0 || m.Median() != 0 || m.StdDev() != 0 || m.Last() != 0 {
		t.Error("expected zero statistics for empty history")
	}
	if got := m.String(); !strings.HasPrefix(got, "stage: run=0") {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestMonitor_Statistics(t *testing.T) {
	m := NewMonitor("stage", 10)
	recordSeconds(m, 1, 2, 3, 4)

	if m.Average() != 2500*time.Millisecond {
		t.Errorf("expected avg 2.5s, got %v", m.Average())
	}
	if m.Median() != 2500*time.Millisecond {
		t.Errorf("expected median 2.5s, got %v", m.Median())
	}
	sd := m.StdDev()
	// sample standard deviation of 1..4 is 1.29099...
	if sd < 1290*time.Millisecond || sd > 1291*time.Millisecond {
		t.Errorf("expected sd ~1.291s, got %v", sd)
	}
	if m.Overall() != 10*time.Second {
		t.Errorf("expected overall 10s, got %v", m.Overall())
	}
	if m.Last() != 4*time.Second {
		t.Errorf("expected last 4s, got %v", m.Last())
	}
}

func TestMonitor_SingleSampleStdDev(t *testing.T) {
	m := NewMonitor("x", 5)
	recordSeconds(m, 7)
	if m.StdDev() != 0 {
		t.Errorf("expected zero sd for one sample, got %v", m.StdDev())
	}
	if m.Median() != 7*time.Second {
		t.Errorf("expected median 7s, got %v", m.Median())
	}
}

func TestMonitor_EvictsOldest(t *testing.T) {
	m := NewMonitor("stage", 3)
	recordSeconds(m, 10, 1, 2, 3)

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if diff := cmp.Diff(want, m.Samples()); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if m.Len() != 3 || m.Capacity() != 3 {
		t.Errorf("history must not exceed capacity, len=%d", m.Len())
	}
	if m.Count() != 4 {
		t.Errorf("expected 4 executions, got %d", m.Count())
	}
	if m.Average() != 2*time.Second {
		t.Errorf("average must reflect retained samples only, got %v", m.Average())
	}
	if m.Overall() != 16*time.Second {
		t.Errorf("overall counts every execution, got %v", m.Overall())
	}
}

func TestMonitor_MinimumCapacity(t *testing.T) {
	m := NewMonitor("x", 0)
	recordSeconds(m, 1, 2)
	if m.Capacity() != 1 || m.Len() != 1 || m.Last() != 2*time.Second {
		t.Errorf("unexpected state cap=%d len=%d last=%v", m.Capacity(), m.Len(), m.Last())
	}
}

func TestMonitor_TrackStartEnd(t *testing.T) {
	m := NewMonitor("x", 2)
	m.TrackStart()
	time.Sleep(5 * time.Millisecond)
	d := m.TrackEnd()
	if d < 5*time.Millisecond {
		t.Errorf("expected at least 5ms, got %v", d)
	}
	if m.Count() != 1 || m.Last() != d {
		t.Errorf("expected tracked sample to be recorded")
	}
}

func TestMonitor_Stats(t *testing.T) {
	m := NewMonitor("iteration", 4)
	recordSeconds(m, 2, 4)
	s := m.Stats()
	want := Stats{
		Label:    "iteration",
		Count:    2,
		Retained: 2,
		Last:     4 * time.Second,
		Average:  3 * time.Second,
		Median:   3 * time.Second,
		StdDev:   s.StdDev,
		Overall:  6 * time.Second,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if s.StdDev < 1414*time.Millisecond || s.StdDev > 1415*time.Millisecond {
		t.Errorf("expected sd ~1.414s, got %v", s.StdDev)
	}
}

func TestMonitor_ConcurrentRecord(t *testing.T) {
	m := NewMonitor("x", 8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(time.Millisecond)
			_ = m.Stats()
		}()
	}
	wg.Wait()
	if m.Count() != 50 || m.Len() != 8 {
		t.Errorf("unexpected count=%d len=%d", m.Count(), m.Len())
	}
}

func TestMonitor_WriteCSV(t *testing.T) {
	m := NewMonitor("stage", 2)
	recordSeconds(m, 1, 2, 3)

	var buf bytes.Buffer
	if err := m.WriteCSV(&buf, true); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", lines)
	}
	if lines[0] != "run,time,sum,avg,med,sd" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,2,2,2,2,0" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2,3,5,2.5,2.5,0.7071") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}

func TestMonitor_SaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.csv")
	m := NewMonitor("stage", 5)
	recordSeconds(m, 1)

	if err := m.SaveCSV(path, true); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	if err := m.SaveCSV(path, true); err != nil {
		t.Fatalf("SaveCSV append: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "run,time"); got != 1 {
		t.Errorf("header must be written once, got %d", got)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Errorf("expected 3 lines after append, got %d", got)
	}

	if err := m.SaveCSV(path, false); err != nil {
		t.Fatalf("SaveCSV truncate: %v", err)
	}
	data, _ = os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("expected truncated file with 2 lines, got %d", got)
	}
}

func TestMonitor_SaveCSVBadPath(t *testing.T) {
	m := NewMonitor("x", 1)
	if err := m.SaveCSV(filepath.Join(t.TempDir(), "missing", "perf.csv"), true); err == nil {
		t.Error("expected error for missing directory")
	}
}
