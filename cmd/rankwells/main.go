// cmd/rankwells runs the batch reactivation pipeline over an orphan-well
// registry and a production history export.
//
// Phases:
//   - load and prefilter the registry (type, status, identity, location)
//   - join production records by API-10 / well ID
//   - compute feature rows and rank the batch
//   - analyze the top N wells and write one JSON report per well
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/reactivation/internal/config"
	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/eventbus"
	"github.com/matthewbaird/reactivation/internal/pipeline"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/ranking"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/registry"
	"github.com/matthewbaird/reactivation/internal/source"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

type options struct {
	registryPath   string
	productionPath string
	asOf           string
	offset         int
	limit          int
	topN           int
	profile        string
	profilesPath   string
	dsn            string
	reportsDir     string
	workers        int
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rankwells: ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var opts options
	flag.StringVar(&opts.registryPath, "registry", "", "orphan well registry CSV (optional)")
	flag.StringVar(&opts.productionPath, "production", "", "production records, .json or .csv (required)")
	flag.StringVar(&opts.asOf, "as-of", "", "as-of date YYYY-MM-DD (default: today)")
	flag.IntVar(&opts.offset, "offset", 0, "skip this many prefiltered registry wells")
	flag.IntVar(&opts.limit, "limit", 0, "process at most this many registry wells (0 = all)")
	flag.IntVar(&opts.topN, "top", cfg.ReportTopN, "number of leading wells to analyze")
	flag.StringVar(&opts.profile, "profile", cfg.Profile, "scoring profile name")
	flag.StringVar(&opts.profilesPath, "profiles", cfg.ProfilesPath, "CUE profiles file")
	flag.StringVar(&opts.dsn, "db", cfg.DatabaseURL, "SQLite DSN; empty keeps results in memory")
	flag.StringVar(&opts.reportsDir, "out", cfg.ReportsDir, "directory for per-well JSON reports")
	flag.IntVar(&opts.workers, "workers", cfg.Workers, "feature computation workers")
	flag.Parse()

	if opts.productionPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) error {
	asOf := time.Now().UTC()
	if opts.asOf != "" {
		t, err := time.Parse("2006-01-02", opts.asOf)
		if err != nil {
			return fmt.Errorf("parsing -as-of: %w", err)
		}
		asOf = t
	}

	profiles := profile.Default()
	if opts.profilesPath != "" {
		var err error
		if profiles, err = profile.Load(opts.profilesPath); err != nil {
			return err
		}
	}
	prof, err := profiles.Get(opts.profile)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, opts.dsn)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := eventbus.New(max(256, opts.topN+1))
	bus.Subscribe("reports", eventbus.NewReportConsumer(st), event.TypeWellAnalyzed)
	bus.Start(ctx)
	defer func() {
		bus.Stop()
		if st := bus.Stats(); st.Dropped+st.Failed > 0 {
			log.Printf("events: %d published, %d dropped, %d failed", st.Published, st.Dropped, st.Failed)
		}
	}()
	recorder := event.NewStoreRecorder(st)
	recorder.SetPublisher(bus)

	pl, err := pipeline.New(prof, st, recorder, opts.workers)
	if err != nil {
		return err
	}

	fmt.Printf("Phase 1: Loading production records from %s...\n", opts.productionPath)
	records, err := source.LoadRecordsFile(opts.productionPath)
	if err != nil {
		return err
	}
	fmt.Printf("  %d records\n", len(records))

	var inputs []ranking.Input
	if opts.registryPath != "" {
		fmt.Printf("Phase 2: Prefiltering registry %s...\n", opts.registryPath)
		wells, err := source.LoadRegistryFile(opts.registryPath)
		if err != nil {
			return err
		}
		kept, summary := registry.Prefilter(wells, registry.DefaultPrefilterOptions())
		fmt.Printf("  total=%d type=%d status=%d identity+location=%d\n",
			summary.Total, summary.AfterTypeScreen, summary.AfterStatusScreen, summary.AfterIdentityLocation)
		kept = window(kept, opts.offset, opts.limit)
		inputs = pl.Join(kept, records)
	} else {
		fmt.Println("Phase 2: No registry given, ranking every well in the production file...")
		inputs = pl.FromRecords(records)
	}

	fmt.Printf("Phase 3: Ranking %d wells as of %s (profile %s)...\n", len(inputs), asOf.Format("2006-01-02"), prof.Name)
	res, err := pl.Rank(ctx, inputs, asOf, opts.topN)
	if err != nil {
		return err
	}
	fmt.Printf("  %d eligible, run %s\n", len(res.Run.Rows), res.Run.ID)
	for _, row := range ranking.Top(res.Run.Rows, opts.topN) {
		fmt.Printf("  #%-3d %-14s score=%.3f rate=%.1f mcf/d months_since=%.0f\n",
			row.Rank, rowKey(row), row.Score, row.PreShutIn.RateMCFPerDay, row.MonthsSinceProduction)
	}

	fmt.Printf("Phase 4: Writing %d reports to %s...\n", len(res.Reports), opts.reportsDir)
	if err := writeReports(opts.reportsDir, res.Reports); err != nil {
		return err
	}
	if len(res.Reports) > 0 {
		summary, err := reactivation.Summarize(res.Reports, prof.Bands)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

// openStore opens SQLite when a DSN is given, otherwise an in-memory store.
func openStore(ctx context.Context, dsn string) (store.Store, func(), error) {
	if dsn == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := store.NewSQLiteStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}

// window applies offset and limit to the prefiltered registry.
func window(wells []registry.Well, offset, limit int) []registry.Well {
	if offset > 0 {
		if offset >= len(wells) {
			return nil
		}
		wells = wells[offset:]
	}
	if limit > 0 && limit < len(wells) {
		wells = wells[:limit]
	}
	return wells
}

func rowKey(r types.FeatureRow) string {
	if r.API != "" {
		return r.API
	}
	return r.WellID
}

// writeReports writes reactivation_analysis_<key>.json per result.
func writeReports(dir string, results []types.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating reports dir: %w", err)
	}
	for _, r := range results {
		key := store.ReportKey(r)
		path := filepath.Join(dir, "reactivation_analysis_"+filepath.Base(key)+".json")
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report %s: %w", key, err)
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("  %s  %s (%d)\n", path, r.Category, r.Score)
	}
	return nil
}
