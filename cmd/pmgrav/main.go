package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/particle"
	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/reference"
	"github.com/san-kum/pmgrav/internal/sim"
	"github.com/san-kum/pmgrav/internal/storage"
	"github.com/san-kum/pmgrav/internal/viz"
)

var (
	dataDir      string
	configFile   string
	preset       string
	verbose      bool
	seed         int64
	nc           int
	boxSize      float64
	threads      int
	transform    string
	realizations int
	step         int
	outFile      string
	theta        float64
	ranks        int
	plotWidth    int
	plotHeight   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pmgrav",
		Short: "variable-mesh particle-mesh gravity solver",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run directory (default: output from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "solve forces at every configured scale factor",
		RunE:  runSurvey,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&realizations, "realizations", 1, "number of seeds to run concurrently")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "show which mesh each scale factor uses",
		RunE:  showSchedule,
	}
	addConfigFlags(scheduleCmd)
	scheduleCmd.Flags().IntVar(&ranks, "ranks", 0, "also check each mesh's seed spectrum split over this many slab ranks")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare mesh forces with a Barnes-Hut tree",
		RunE:  compareTree,
	}
	addConfigFlags(compareCmd)
	compareCmd.Flags().Float64Var(&theta, "theta", 0.5, "tree opening angle")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id|spectrum_file]",
		Short: "plot a power spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSpectrum,
	}
	plotCmd.Flags().IntVar(&step, "step", -1, "time step of the run (default: last with a spectrum)")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id|spectrum_file]",
		Short: "export a power spectrum to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().IntVar(&step, "step", -1, "time step of the run (default: last with a spectrum)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list variable-mesh presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-16s %v\n", name, config.Presets[name])
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, scheduleCmd, compareCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, or ini/cfg)")
	cmd.Flags().StringVar(&preset, "preset", "", "variable-mesh preset")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "lattice seed")
	cmd.Flags().IntVar(&nc, "nc", config.DefaultNc, "particles per side")
	cmd.Flags().Float64Var(&boxSize, "box", config.DefaultBoxSize, "box size")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker threads (0: all cpus)")
	cmd.Flags().StringVar(&transform, "transform", "", "transform backend")
}

// loadConfig starts from a preset or the defaults, applies the config
// file, then any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			loaded.VariableMesh = cfg.VariableMesh
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("nc") {
		cfg.Nc = nc
	}
	if flags.Changed("box") {
		cfg.BoxSize = boxSize
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("transform") {
		cfg.Transform = transform
	}
	if dataDir != "" {
		cfg.Output = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSurvey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.Output)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(viz.Title.Render("pmgrav"))
	fmt.Println(viz.Metric("particles", fmt.Sprintf("%d^3", cfg.Nc)), " ",
		viz.Metric("box", fmt.Sprintf("%g", cfg.BoxSize)), " ",
		viz.Metric("realizations", fmt.Sprint(realizations)))

	rec := sim.NewRecorder(st, cfg)
	ens := sim.NewEnsemble(cfg, realizations, slog.Default())
	ens.AddObserver(rec)

	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}

	runs := make(map[int64]string)
	for _, meta := range rec.Runs() {
		runs[meta.Seed] = meta.ID
	}
	for _, res := range results {
		rows := make([]viz.Step, len(res.Steps))
		for i, s := range res.Steps {
			rows[i] = viz.Step{
				A:       s.A,
				Nmesh:   s.Solve.Nmesh[0],
				AccRMS:  s.Stats.RMS,
				Seconds: s.Solve.Timings.Total().Seconds(),
				Power:   s.Spectrum != nil,
			}
		}
		fmt.Println(viz.Separator(60))
		fmt.Println(viz.Metric("seed", fmt.Sprint(res.Seed)), " ", viz.Metric("run", runs[res.Seed]))
		fmt.Println(viz.StepsTable(rows))
	}
	return nil
}

func showSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return err
	}
	fmt.Println(viz.ScheduleTable(schedule, cfg.Nc, cfg.TimeSteps))
	if ranks == 0 {
		return nil
	}

	checks, err := sim.CheckSlabs(cfg, ranks)
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("seed spectrum over %d slab ranks", ranks)))
	failed := 0
	for _, c := range checks {
		status := "ok"
		if !c.Agrees {
			status = viz.Warning.Render("mismatch")
			failed++
		}
		fmt.Println(viz.Metric(fmt.Sprintf("nmesh %d", c.Nmesh), fmt.Sprintf("%.0f modes, max rel diff %.2g, %s", c.Modes, c.MaxRelDiff, status)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d meshes disagree across %d ranks", failed, len(checks), ranks)
	}
	return nil
}

func compareTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	last := cfg.TimeSteps[len(cfg.TimeSteps)-1]
	cfg.TimeSteps = []float64{last}
	cfg.Force = true
	cfg.PowerSpectrum.Every = 0

	survey, err := sim.NewSurvey(cfg, slog.Default())
	if err != nil {
		return err
	}
	store, err := particle.Lattice(cfg.Nc, cfg.BoxSize, cfg.Jitter, cfg.Seed)
	if err != nil {
		return err
	}
	res, err := survey.RunOn(cmd.Context(), store, cfg.Seed)
	if err != nil {
		return err
	}

	mesh := make([][3]float64, store.Len())
	for i := range mesh {
		mesh[i] = store.Acceleration(i)
	}
	cell := cfg.BoxSize / float64(cfg.Nc)
	tree, err := reference.TreeAccelerations(store, cell*cell*cell, theta)
	if err != nil {
		return err
	}
	cmp, err := reference.Compare(mesh, tree)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("mesh vs tree at a=%g", last)))
	fmt.Println(viz.Metric("nmesh", fmt.Sprint(res.Steps[0].Solve.Nmesh[0])))
	fmt.Println(viz.Metric("relative rms", fmt.Sprintf("%.4g", cmp.RelativeRMS)))
	fmt.Println(viz.Metric("alignment", fmt.Sprintf("%.4f", cmp.Alignment)))
	fmt.Println(viz.Subtle.Render("the tree is not periodic; expect disagreement near the box edges"))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(runDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSEED\tNC\tBOX\tSTEPS\tSPECTRA")
	for _, run := range runs {
		spectra := 0
		for _, s := range run.Steps {
			if s.Spectrum != "" {
				spectra++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%g\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Seed,
			run.Nc,
			run.BoxSize,
			len(run.Steps),
			spectra,
		)
	}
	return w.Flush()
}

func plotSpectrum(cmd *cobra.Command, args []string) error {
	ps, caption, err := loadSpectrum(args[0])
	if err != nil {
		return err
	}
	out, err := viz.PlotSpectrum(ps, caption, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	ps, _, err := loadSpectrum(args[0])
	if err != nil {
		return err
	}
	return storage.ExportSpectrumCSV(os.Stdout, ps)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(runDir()).Load(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(outFile, meta)
}

// loadSpectrum reads arg as a spectrum file when one exists at that path,
// otherwise as a run ID.
func loadSpectrum(arg string) (*power.Spectrum, string, error) {
	if fi, err := os.Stat(arg); err == nil && !fi.IsDir() {
		ps, _, err := storage.LoadSpectrum(arg)
		return ps, strings.TrimSuffix(filepath.Base(arg), ".txt"), err
	}

	st := storage.New(runDir())
	meta, err := st.Load(arg)
	if err != nil {
		return nil, "", err
	}
	idx := step
	if idx < 0 {
		for i := len(meta.Steps) - 1; i >= 0; i-- {
			if meta.Steps[i].Spectrum != "" {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, "", fmt.Errorf("run %s recorded no spectra", arg)
		}
	}
	ps, _, err := st.LoadSpectrum(arg, idx)
	if err != nil {
		return nil, "", err
	}
	a := math.NaN()
	if idx < len(meta.Steps) {
		a = meta.Steps[idx].A
	}
	return ps, fmt.Sprintf("%s a=%g", arg, a), nil
}

func runDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultConfig().Output
}
