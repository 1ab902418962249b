package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// SanitizeCSVField stops spreadsheet formula evaluation by prefixing values
// that start with =, +, - or @ with a single quote.
func SanitizeCSVField(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@':
		return "'" + v
	}
	return v
}

// CSVWriter streams rows through a buffered csv.Writer and sanitizes every field.
type CSVWriter struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	pendingLines int
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	return &CSVWriter{buf: buf, csv: csv.NewWriter(buf)}
}

func (s *CSVWriter) WriteRow(row []string) error {
	clean := make([]string, len(row))
	for i, v := range row {
		clean[i] = SanitizeCSVField(v)
	}
	if err := s.csv.Write(clean); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.pendingLines++
	if s.pendingLines >= csvFlushEvery {
		return s.Flush()
	}
	return nil
}

func (s *CSVWriter) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV writes header and rows and flushes.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	s := NewCSVWriter(w)
	if err := s.WriteRow(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := s.WriteRow(r); err != nil {
			return err
		}
	}
	return s.Flush()
}
