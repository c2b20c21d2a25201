package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/pmgrav/internal/power"
)

// ExportJSON writes run metadata as indented JSON to path, or to stdout
// when path is empty or "-".
func ExportJSON(path string, meta *RunMetadata) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

type spectrumRow struct {
	K float64 `csv:"k"`
	P float64 `csv:"p"`
	N float64 `csv:"n"`
}

// ExportSpectrumCSV writes the non-empty bins of ps with a header row.
func ExportSpectrumCSV(w io.Writer, ps *power.Spectrum) error {
	rows := make([]*spectrumRow, 0, ps.Size())
	for i := range ps.K {
		if ps.N[i] == 0 || math.IsNaN(ps.K[i]) {
			continue
		}
		rows = append(rows, &spectrumRow{K: ps.K[i], P: ps.P[i], N: ps.N[i]})
	}
	return gocsv.Marshal(rows, w)
}
