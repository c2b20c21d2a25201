package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/pmgrav/internal/power"
)

// SpectrumFileName names the spectrum of one realization at scale factor a.
func SpectrumFileName(basename string, seed int64, a float64) string {
	return fmt.Sprintf("%s%05d_%0.04f.txt", basename, seed, a)
}

// WriteSpectrum writes one row "k p N" per bin followed by a commented
// metadata block.
func WriteSpectrum(w io.Writer, ps *power.Spectrum, meta power.Meta) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# k p N \n")
	for i := range ps.K {
		fmt.Fprintf(bw, "%.6g %.6g %.6g\n", ps.K[i], ps.P[i], ps.N[i])
	}
	fmt.Fprintf(bw, "# metadata 7\n")
	fmt.Fprintf(bw, "# volume %.6g float64\n", meta.Volume)
	fmt.Fprintf(bw, "# shotnoise %.6g float64\n", meta.ShotNoise)
	fmt.Fprintf(bw, "# N1 %.6g int\n", meta.N1)
	fmt.Fprintf(bw, "# N2 %.6g int\n", meta.N2)
	fmt.Fprintf(bw, "# Lz %.6g float64\n", meta.BoxSize[2])
	fmt.Fprintf(bw, "# Lx %.6g float64\n", meta.BoxSize[0])
	fmt.Fprintf(bw, "# Ly %.6g float64\n", meta.BoxSize[1])
	return bw.Flush()
}

// ReadSpectrum parses the format written by WriteSpectrum.
func ReadSpectrum(r io.Reader) (*power.Spectrum, power.Meta, error) {
	var meta power.Meta
	ps := power.New(0)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "#") {
			fields := strings.Fields(strings.TrimPrefix(text, "#"))
			if len(fields) < 2 {
				continue
			}
			var dst *float64
			switch fields[0] {
			case "volume":
				dst = &meta.Volume
			case "shotnoise":
				dst = &meta.ShotNoise
			case "N1":
				dst = &meta.N1
			case "N2":
				dst = &meta.N2
			case "Lx":
				dst = &meta.BoxSize[0]
			case "Ly":
				dst = &meta.BoxSize[1]
			case "Lz":
				dst = &meta.BoxSize[2]
			default:
				// column header or metadata count
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, meta, fmt.Errorf("storage: line %d: %s: %w", line, fields[0], err)
			}
			*dst = v
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, meta, fmt.Errorf("storage: line %d: expected 3 columns, got %d", line, len(fields))
		}
		var row [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, meta, fmt.Errorf("storage: line %d: %w", line, err)
			}
			row[i] = v
		}
		ps.K = append(ps.K, row[0])
		ps.P = append(ps.P, row[1])
		ps.N = append(ps.N, row[2])
	}
	if err := sc.Err(); err != nil {
		return nil, meta, err
	}

	ps.Volume = meta.Volume
	ps.BoxSize = meta.BoxSize
	return ps, meta, nil
}

func LoadSpectrum(path string) (*power.Spectrum, power.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, power.Meta{}, err
	}
	defer f.Close()
	return ReadSpectrum(f)
}
