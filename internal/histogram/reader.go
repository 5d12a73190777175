package histogram

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Row is one parsed line of a histogram file. Undefined rows carry NaN in
// every field.
type Row struct {
	Path        string
	Frequencies []float64
}

// Defined reports whether the row has numeric frequencies.
func (r Row) Defined() bool {
	return len(r.Frequencies) > 0 && !math.IsNaN(r.Frequencies[0])
}

// Read parses histogram lines from rd. Every row must have the same number of
// fields. Trailing tabs are tolerated.
func Read(rd io.Reader) ([]Row, error) {
	var rows []Row
	width := -1
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\t\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		row := Row{Path: fields[0], Frequencies: make([]float64, 0, len(fields)-1)}
		for _, f := range fields[1:] {
			if f == Undefined {
				row.Frequencies = append(row.Frequencies, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			row.Frequencies = append(row.Frequencies, v)
		}
		if width >= 0 && len(row.Frequencies) != width {
			return nil, fmt.Errorf("line %d: %d fields, expected %d", lineNo, len(row.Frequencies), width)
		}
		width = len(row.Frequencies)
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read histograms: %w", err)
	}
	return rows, nil
}

// ReadFile parses the histogram file at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open histograms: %w", err)
	}
	defer f.Close()
	return Read(f)
}
