package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pmgrav/internal/vpm"
)

// ScheduleTable lists, for each scale factor, the mesh entry it selects.
// Scale factors before the first entry are flagged.
func ScheduleTable(s *vpm.Schedule, nc int, steps []float64) string {
	var rows []string
	rows = append(rows, HeaderStyle.Render(fmt.Sprintf("%-10s %-8s %-8s %s", "a", "factor", "nmesh", "entry")))
	for _, a := range steps {
		i, cfg, err := s.Select(a)
		if err != nil {
			rows = append(rows, Warning.Render(fmt.Sprintf("%-10.4g %s", a, "no mesh configured")))
			continue
		}
		rows = append(rows, fmt.Sprintf("%-10.4g %-8d %-8d %s", a, cfg.Factor, nc*cfg.Factor, Subtle.Render(fmt.Sprintf("#%d %v", i, cfg))))
	}
	return Panel.Render(strings.Join(rows, "\n"))
}

// Step is one row of a run summary.
type Step struct {
	A       float64
	Nmesh   int
	AccRMS  float64
	Seconds float64
	Power   bool
}

func StepsTable(steps []Step) string {
	header := HeaderStyle.Render(fmt.Sprintf("%-10s %-7s %-12s %-9s %s", "a", "nmesh", "acc rms", "seconds", "P(k)"))
	rows := []string{header}
	rms := make([]float64, len(steps))
	for i, st := range steps {
		mark := Subtle.Render("-")
		if st.Power {
			mark = Active.Render("✓")
		}
		rows = append(rows, fmt.Sprintf("%-10.4g %-7d %-12.4g %-9.3f %s", st.A, st.Nmesh, st.AccRMS, st.Seconds, mark))
		rms[i] = st.AccRMS
	}
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if len(steps) > 1 {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", Metric("acc rms", Sparkline(rms)))
	}
	return Panel.Render(body)
}
