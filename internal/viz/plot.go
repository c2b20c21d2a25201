package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pmgrav/internal/power"
)

// PlotSpectrum draws log10 P against bin index, skipping empty or
// non-positive bins. It returns an error when nothing is plottable.
func PlotSpectrum(ps *power.Spectrum, caption string, width, height int) (string, error) {
	data := make([]float64, 0, ps.Size())
	kmin, kmax := math.Inf(1), math.Inf(-1)
	for i := range ps.P {
		p, k := ps.P[i], ps.K[i]
		if math.IsNaN(p) || p <= 0 || math.IsNaN(k) {
			continue
		}
		data = append(data, math.Log10(p))
		kmin = math.Min(kmin, k)
		kmax = math.Max(kmax, k)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("viz: spectrum has no positive bins")
	}

	if caption == "" {
		caption = "log10 P(k)"
	}
	caption = fmt.Sprintf("%s, k in [%.3g, %.3g]", caption, kmin, kmax)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}
