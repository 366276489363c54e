package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cast"

	"github.com/kbukum/jobrunner/job"
)

// CSVSink appends one row per iteration to a CSV file: the sample number
// followed by each input. A header naming the inputs is written when the file
// is empty. The config is the file path.
type CSVSink struct {
	job.Base
	path   string
	file   *os.File
	writer *csv.Writer
	inputs []any
	sample int
}

func NewCSVSink(p job.Params) (job.Job, error) {
	s := &CSVSink{Base: job.NewBase(p)}
	s.path = s.ParamString()
	if s.path == "" {
		s.path = cast.ToString(s.ParamMap()["path"])
	}
	if s.path == "" {
		return nil, fmt.Errorf("csv sink %q: config must be a file path", p.Name)
	}
	return s, nil
}

func (s *CSVSink) Setup(context.Context) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", s.path, err)
	}

	s.file = f
	s.writer = csv.NewWriter(f)
	s.sample = 0
	if info.Size() == 0 {
		header := append([]string{"sample"}, s.RequiredInputs()...)
		if err := s.writer.Write(header); err != nil {
			return fmt.Errorf("writing header to %s: %w", s.path, err)
		}
	}
	return nil
}

func (s *CSVSink) Run(context.Context) error {
	if s.writer == nil {
		return fmt.Errorf("csv sink %q used before setup", s.Name())
	}
	s.sample++
	row := make([]string, 0, len(s.inputs)+1)
	row = append(row, strconv.Itoa(s.sample))
	for _, v := range s.inputs {
		row = append(row, cast.ToString(v))
	}
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Teardown(context.Context) error {
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file, s.writer = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (s *CSVSink) SetInputs(values []any) { s.inputs = values }

// Output returns the number of rows written since setup.
func (s *CSVSink) Output() any { return s.sample }
