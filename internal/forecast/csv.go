package forecast

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
)

// LedgerHeader is the CSV header: day followed by every column.
func LedgerHeader() []string {
	h := make([]string, 0, len(Columns)+1)
	h = append(h, "day")
	for _, c := range Columns {
		h = append(h, c.Name)
	}
	return h
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, ledger)
}

// WriteLedger writes ledger as CSV to w.
func WriteLedger(w io.Writer, ledger []LedgerRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(LedgerHeader()); err != nil {
		return err
	}
	row := make([]string, len(Columns)+1)
	for i := range ledger {
		r := &ledger[i]
		row[0] = strconv.Itoa(r.Day)
		for j, c := range Columns {
			row[j+1] = FormatFloat(c.Value(r))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat renders a ledger value; NaN is written as an empty cell.
func FormatFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
