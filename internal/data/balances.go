package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadBalancesCSV reads wallet balances from the "balance" column of a CSV
// file with a header row. Other columns (addresses, labels) are ignored.
func LoadBalancesCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := ReadBalancesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ReadBalancesCSV is LoadBalancesCSV over an arbitrary reader.
func ReadBalancesCSV(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty balances file")
		}
		return nil, err
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "balance") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("balances file has no %q column (header %v)", "balance", header)
	}

	var out []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		b, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid balance %q", line, cell)
		}
		if b < 0 {
			return nil, fmt.Errorf("line %d: negative balance %v", line, b)
		}
		out = append(out, b)
	}
	return out, nil
}
