package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/san-kum/bouncebox/internal/config"
	"github.com/san-kum/bouncebox/internal/export"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/metrics"
	"github.com/san-kum/bouncebox/internal/sandbox"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/storage"
	"github.com/san-kum/bouncebox/internal/tui"
	"github.com/san-kum/bouncebox/internal/viz"
	"github.com/san-kum/bouncebox/internal/world"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	sceneArg   string
	backend    string
	serveAddr  string
	monitor    bool
	plain      bool
	tracePath  string
	traceEvery int
	duration   float64
	frameRate  int
	theme      string
	verbose    bool
	benchRuns  int
	benchTicks int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bouncebox",
		Short: "physics sandbox instrument",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bouncebox", "scene directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the sandbox",
		Args:  cobra.NoArgs,
		RunE:  runSandbox,
	}
	runCmd.Flags().StringVar(&sceneArg, "scene", "", "saved scene name or scene file")
	runCmd.Flags().StringVar(&backend, "audio", "", "audio backend: speaker, portaudio, headless, off")
	runCmd.Flags().StringVar(&serveAddr, "serve", "", "websocket listen address, empty disables")
	runCmd.Flags().BoolVar(&monitor, "monitor", false, "full-screen terminal monitor")
	runCmd.Flags().BoolVar(&plain, "plain", false, "plain text view")
	runCmd.Flags().StringVar(&tracePath, "trace", "", "write a CSV trace to this file")
	runCmd.Flags().IntVar(&traceEvery, "trace-every", 6, "ticks between trace rows")
	runCmd.Flags().Float64Var(&duration, "time", 0, "stop after this many seconds, 0 runs until interrupted")
	runCmd.Flags().IntVar(&frameRate, "fps", 15, "plain view frame rate")
	runCmd.Flags().StringVar(&theme, "theme", "neon", "monitor theme")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr while a view is open")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list saved scenes",
		Args:  cobra.NoArgs,
		RunE:  listScenes,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark headless tick throughput",
		Args:  cobra.NoArgs,
		RunE:  benchSandbox,
	}
	benchCmd.Flags().IntVar(&benchRuns, "runs", 4, "parallel sandboxes")
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 3000, "ticks per sandbox")

	validateCmd := &cobra.Command{
		Use:   "validate [scene]",
		Short: "check the config and optionally a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  validate,
	}

	exportCmd := &cobra.Command{
		Use:   "export [scene] [out.svg]",
		Short: "render a scene to SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportScene,
	}

	rootCmd.AddCommand(runCmd, scenesCmd, presetsCmd, benchCmd, validateCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the preset, then the config file on top.
func loadConfig() (*config.Config, error) {
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
		cfg = loaded
	}
	return cfg, nil
}

// loadScene treats arg as a file when one exists, otherwise as a saved
// scene name.
func loadScene(st *storage.Store, arg string) (*world.Scene, error) {
	if _, err := os.Stat(arg); err == nil {
		return storage.LoadFile(arg)
	}
	return st.Load(arg)
}

func runSandbox(cmd *cobra.Command, args []string) error {
	if monitor && plain {
		return errors.New("--monitor and --plain are exclusive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Audio.Backend = backend
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	if (monitor || plain) && !verbose {
		logOut = io.Discard
	}
	sb, err := sandbox.New(cfg, sandbox.Options{Serve: serveAddr != "", Store: st, LogOut: logOut})
	if err != nil {
		return err
	}

	if sceneArg != "" {
		scene, err := loadScene(st, sceneArg)
		if err != nil {
			return err
		}
		if err := sb.LoadScene(scene); err != nil {
			return err
		}
	}

	var trace *sandbox.Trace
	if tracePath != "" {
		trace, err = sb.AttachTrace(tracePath, traceEvery)
		if err != nil {
			return err
		}
	}

	stats := metrics.Default(cfg.WorldWidth(), cfg.WorldHeight())
	sb.Driver.AddObserver(stats)

	var live *tui.LiveRenderer
	if plain {
		live = tui.NewLiveRenderer(os.Stdout, frameRate, cfg.WorldWidth(), cfg.WorldHeight())
		sb.Driver.AddObserver(live)
		live.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(duration*float64(time.Second)))
		defer cancel()
	}

	if !monitor && !plain {
		fmt.Printf("bouncebox: %s audio, %d objects max", cfg.Audio.Backend, cfg.Population)
		if sb.Server != nil {
			fmt.Printf(", serving ws://%s/ws", cfg.Server.Addr)
		}
		fmt.Println()
	}

	runErr := make(chan error, 1)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go func() { runErr <- sb.Run(runCtx) }()

	if monitor {
		opts := viz.Options{
			Title:       "bouncebox",
			WorldWidth:  cfg.WorldWidth(),
			WorldHeight: cfg.WorldHeight(),
			Theme:       theme,
			Params:      sb.Params,
		}
		if sb.Analyzer != nil {
			opts.Spectrum = sb.Analyzer
		}
		if err := viz.Run(sb.Driver.Frame, opts); err != nil {
			cancelRun()
			<-runErr
			return err
		}
		cancelRun()
	}

	err = <-runErr
	if live != nil {
		live.Stop()
		fmt.Println()
	}
	if trace != nil {
		if cerr := trace.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}

	f := sb.Driver.Frame()
	fmt.Printf("stopped at %.2fs: %d objects, %d strokes, %d hits, %d evicted, %d dropped\n",
		f.Time, f.Count(), len(f.Strokes), f.Hits, f.Evicted, f.Drops.Total())
	for _, m := range stats.Metrics() {
		fmt.Printf("  %-12s %.3f\n", m.Name(), m.Value())
	}
	return nil
}

func listScenes(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	scenes, err := st.List()
	if err != nil {
		return err
	}

	if len(scenes) == 0 {
		fmt.Println("no scenes found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTIME\tSTROKES\tOBJECTS\tFORCES\tEMITTERS")

	for _, s := range scenes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			s.Name,
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Strokes,
			s.Objects,
			s.Forces,
			s.Emitters,
		)
	}

	return w.Flush()
}

// benchScene is a floor of every material under one emitter per shape.
func benchScene(cfg *config.Config) *world.Scene {
	w := float64(cfg.Canvas.Width)
	h := float64(cfg.Canvas.Height)
	s := &world.Scene{
		Version:    world.SceneVersion,
		SpawnPoint: world.Point(cfg.Spawn.Point),
	}
	seg := w / float64(kind.NumMaterials)
	for m := kind.Material(0); m < kind.NumMaterials; m++ {
		x := float64(m) * seg
		s.Strokes = append(s.Strokes, world.StrokeState{
			Material: m,
			Points:   []world.Point{{x, h * 0.9}, {x + seg, h * 0.85}},
		})
	}
	top := cfg.WorldHeight() * 0.9
	for k := kind.Shape(0); k < kind.NumShapes; k++ {
		x := cfg.WorldWidth() * float64(k+1) / float64(kind.NumShapes+1)
		s.Emitters = append(s.Emitters, world.EmitterState{
			Position: world.Point{x, top},
			Rate:     6,
			Kind:     k,
			Mass:     cfg.Spawn.Mass,
		})
	}
	return s
}

func benchSandbox(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if benchRuns < 1 || benchTicks < 1 {
		return fmt.Errorf("runs and ticks must be positive")
	}
	cfg.Audio.Backend = sandbox.AudioOff

	sets := make([]*metrics.Set, benchRuns)
	ens := sim.NewEnsemble(benchRuns, func(run int) (*sim.Driver, error) {
		sb, err := sandbox.New(cfg, sandbox.Options{LogOut: io.Discard})
		if err != nil {
			return nil, err
		}
		if err := sb.LoadScene(benchScene(cfg)); err != nil {
			return nil, err
		}
		sets[run] = metrics.Default(cfg.WorldWidth(), cfg.WorldHeight())
		sb.Driver.AddObserver(sets[run])
		return sb.Driver, nil
	})

	fmt.Printf("benchmarking %d sandboxes, %d ticks each, cap %d\n\n", benchRuns, benchTicks, cfg.Population)
	results, err := ens.Run(context.Background(), benchTicks)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTICKS\tTIME\tTICKS/SEC\tOBJECTS\tHITS\tEVICTED\tDROPPED\tENERGY\tCONTAINED")
	for i, r := range results {
		v := sets[i].Values()
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%d\t%d\t%d\t%d\t%.2f\t%.3f\n",
			i, r.Ticks, r.Elapsed.Round(time.Millisecond), r.TicksPerSecond(),
			r.Objects, r.Hits, r.Evicted, r.Dropped, v["energy"], v["containment"])
	}
	return w.Flush()
}

func validate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("config ok: %dx%d canvas, %.0f px/m, cap %d, audio %s\n",
		cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.PixelsPerMeter, cfg.Population, cfg.Audio.Backend)

	if len(args) == 0 {
		return nil
	}
	scene, err := loadScene(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scene ok: %d strokes, %d objects, %d forces, %d emitters\n",
		len(scene.Strokes), len(scene.Objects), len(scene.Forces), len(scene.Emitters))
	return nil
}

func exportScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scene, err := loadScene(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	svg := export.SceneToSVG(scene, sandbox.WorldConfig(cfg), cfg.Canvas.Width, cfg.Canvas.Height)
	if err := os.WriteFile(args[1], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}
