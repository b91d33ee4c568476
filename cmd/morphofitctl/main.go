package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"morphofit/internal/config"
	"morphofit/internal/evaluator"
	"morphofit/internal/export"
	"morphofit/internal/fitness"
	"morphofit/pkg/morphofit"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "rerun":
		return runRerun(ctx, args[1:])
	case "positions":
		return runPositions(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "composers":
		return runComposers(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// commonFlags are accepted by every command that opens a store.
type commonFlags struct {
	configPath *string
	storeKind  *string
	dbPath     *string
	composer   *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "YAML config file merged over the defaults"),
		storeKind:  fs.String("store", "", "store backend override: memory|sqlite"),
		dbPath:     fs.String("db-path", "", "sqlite database path override"),
		composer:   fs.String("composer", "", "fitness composer override"),
	}
}

func (f commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return nil, err
	}
	if *f.storeKind != "" {
		cfg.Storage.Kind = *f.storeKind
	}
	if *f.dbPath != "" {
		cfg.Storage.DBPath = *f.dbPath
	}
	if *f.composer != "" {
		cfg.Fitness.Composer = *f.composer
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f commonFlags) open(ctx context.Context, reg prometheus.Registerer) (*morphofit.Client, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	client, err := morphofit.New(morphofit.Options{Config: cfg, Registerer: reg})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// queryFlags select a stored run.
type queryFlags struct {
	runID  *string
	latest *bool
	limit  *int
}

func addQueryFlags(fs *flag.FlagSet, limit int) queryFlags {
	return queryFlags{
		runID:  fs.String("run-id", "", "run id (empty spans every run)"),
		latest: fs.Bool("latest", false, "use the most recent run"),
		limit:  fs.Int("limit", limit, "max individuals"),
	}
}

func (q queryFlags) query() morphofit.RunQuery {
	return morphofit.RunQuery{RunID: *q.runID, Latest: *q.latest, Limit: *q.limit}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Fprintf(stdout, "initialized store=%s\n", client.Config().Storage.Kind)
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id (generated when empty)")
	generation := fs.Int("generation", 0, "generation index of the evaluated batch")
	population := fs.Int("pop", 0, "population size override")
	seed := fs.Int64("seed", 0, "population seed override (configured seed when unset)")
	jsonOut := fs.Bool("json", false, "emit per-candidate results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		stop := serveMetrics(cfg.Metrics.Addr, reg)
		defer stop()
	}
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}

	client, err := morphofit.New(morphofit.Options{Config: cfg, Registerer: registerer})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := morphofit.EvaluateRequest{
		RunID:      *runID,
		Generation: *generation,
		Population: *population,
	}
	if flagSet(fs, "seed") {
		req.Seed = seed
	}

	start := time.Now()
	summary, err := client.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(resultViews(summary.Results))
	}

	fmt.Fprintf(stdout, "run_id=%s generation=%d composer=%s evaluated=%s stored=%s failed=%s elapsed=%s\n",
		summary.RunID,
		summary.Generation,
		cfg.Fitness.Composer,
		humanize.Comma(int64(len(summary.Results))),
		humanize.Comma(int64(summary.Stored)),
		humanize.Comma(int64(summary.Failed)),
		time.Since(start).Round(time.Millisecond),
	)
	if summary.Stored > 0 {
		fmt.Fprintf(stdout, "best fitness=%.6f genotype_id=%s actuators=%d parts=%d\n",
			summary.Best.Fitness,
			summary.Best.GenotypeID,
			summary.Best.Morphology.Actuators,
			summary.Best.Morphology.StructuralParts,
		)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs")
		return nil
	}
	for _, id := range runs {
		fmt.Fprintln(stdout, id)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	common := addCommonFlags(fs)
	query := addQueryFlags(fs, 10)
	jsonOut := fs.Bool("json", false, "emit top individuals as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.Top(ctx, query.query())
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Fprintln(stdout, "no individuals")
		return nil
	}
	if *jsonOut {
		return encodeJSON(top)
	}

	for _, item := range top {
		fmt.Fprintf(stdout, "rank=%d fitness=%.6f run_id=%s generation=%d genotype_id=%s hinges=%d\n",
			item.Rank,
			item.Individual.Fitness,
			item.Individual.RunID,
			item.Individual.Generation,
			item.Individual.Genotype.ID,
			len(item.Individual.Genotype.Brain),
		)
	}
	return nil
}

func runRerun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rerun", flag.ContinueOnError)
	common := addCommonFlags(fs)
	query := addQueryFlags(fs, 10)
	generation := fs.Int("generation", -1, "fitness context generation (<0 uses the stored generation)")
	headless := fs.Bool("headless", false, "suppress per-sample pose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Rerun(ctx, morphofit.RerunRequest{
		RunQuery:   query.query(),
		Generation: *generation,
		Headless:   *headless,
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no individuals")
		return nil
	}

	for _, item := range items {
		if item.Result.Failed {
			fmt.Fprintf(stdout, "rank=%d genotype_id=%s failed: %v\n", item.Rank, item.Individual.Genotype.ID, item.Result.Err)
			continue
		}
		fmt.Fprintf(stdout, "rank=%d genotype_id=%s stored=%.6f replayed=%.6f\n",
			item.Rank,
			item.Individual.Genotype.ID,
			item.StoredFitness,
			item.Result.Fitness,
		)
	}
	return nil
}

func runPositions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("positions", flag.ContinueOnError)
	common := addCommonFlags(fs)
	query := addQueryFlags(fs, 10)
	save := fs.Bool("save", false, "persist trajectories in the store")
	outDir := fs.String("out", "", "write one trajectory CSV per genotype into this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Positions(ctx, morphofit.PositionsRequest{RunQuery: query.query(), Save: *save})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no individuals")
		return nil
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
	}

	for _, item := range items {
		if item.Err != nil {
			fmt.Fprintf(stdout, "rank=%d genotype_id=%s failed: %v\n", item.Rank, item.GenotypeID, item.Err)
			continue
		}
		fmt.Fprintf(stdout, "rank=%d genotype_id=%s samples=%d path=%.4f displacement=%.4f mean_z=%.4f\n",
			item.Rank,
			item.GenotypeID,
			item.Path.Samples,
			item.Path.PathLength,
			item.Path.Displacement,
			item.Path.MeanHeight,
		)
		if *outDir == "" {
			continue
		}
		if err := writeTrajectoryFile(filepath.Join(*outDir, fmt.Sprintf("%02d_%s.csv", item.Rank, item.GenotypeID)), item); err != nil {
			return err
		}
	}
	return nil
}

func writeTrajectoryFile(path string, item morphofit.PositionsItem) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTrajectory(f, item.GenotypeID, item.Trajectory); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := common.open(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, morphofit.ExportRequest{
		RunQuery: morphofit.RunQuery{RunID: *runID, Latest: *latest},
		OutDir:   *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	for _, file := range summary.Files {
		size := "?"
		if info, err := os.Stat(file); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(stdout, "  %s (%s)\n", filepath.Base(file), size)
	}
	return nil
}

func runComposers(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("composers", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range fitness.Names() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

// resultView is the JSON form of an evaluation result. Failed candidates
// carry an error message instead of a fitness.
type resultView struct {
	Index      int      `json:"index"`
	GenotypeID string   `json:"genotype_id"`
	Fitness    *float64 `json:"fitness,omitempty"`
	Actuators  int      `json:"actuators"`
	Parts      int      `json:"structural_parts"`
	Error      string   `json:"error,omitempty"`
}

func resultViews(results []evaluator.Result) []resultView {
	out := make([]resultView, len(results))
	for i, r := range results {
		view := resultView{
			Index:      r.Index,
			GenotypeID: r.GenotypeID,
			Actuators:  r.Morphology.Actuators,
			Parts:      r.Morphology.StructuralParts,
		}
		if r.Failed {
			view.Error = r.Err.Error()
		} else {
			score := r.Fitness
			view.Fitness = &score
		}
		out[i] = view
	}
	return out
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func encodeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: morphofitctl <init|evaluate|runs|top|rerun|positions|export|composers> [flags]", msg)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
