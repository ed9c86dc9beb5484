// Command weatherd runs the aggregation/scheduling daemon and the
// read-oriented HTTP API described in spec §4 and §6. It wires every
// internal package constructed in this repo: config, logging, the two DB
// pools, the per-upstream rate-limit/breaker/fabric stack, the NWS/NOAA
// clients and ingest pipelines, the scheduler, and the API router.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/api"
	"github.com/ngmaloney/weatherd/internal/breaker"
	"github.com/ngmaloney/weatherd/internal/config"
	"github.com/ngmaloney/weatherd/internal/httpfabric"
	"github.com/ngmaloney/weatherd/internal/importer"
	"github.com/ngmaloney/weatherd/internal/ingest/noaaingest"
	"github.com/ngmaloney/weatherd/internal/ingest/nwsingest"
	"github.com/ngmaloney/weatherd/internal/ingestlog"
	"github.com/ngmaloney/weatherd/internal/logging"
	"github.com/ngmaloney/weatherd/internal/metrics"
	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/noaa"
	"github.com/ngmaloney/weatherd/internal/nws"
	"github.com/ngmaloney/weatherd/internal/ratelimit"
	"github.com/ngmaloney/weatherd/internal/respcache"
	"github.com/ngmaloney/weatherd/internal/scheduler"
	"github.com/ngmaloney/weatherd/internal/stationsfile"
	"github.com/ngmaloney/weatherd/internal/store"
)

// Default breaker/bucket parameters for the NWS upstream, which spec §6
// never exposes its own env vars for (only NOAA's are configurable).
const (
	nwsQPS         = 1
	nwsCBThreshold = 5
	nwsCBWindow    = 60 * time.Second
	nwsCBCoolDown  = 300 * time.Second
	fabricTimeout  = 30 * time.Second
	shutdownGrace  = 10 * time.Second
	schedulerDrain = 3 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(os.Getenv("ENV") != "production")
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	st, err := store.Open(cfg.DBDSN, cfg.DBAPIPoolMax, cfg.DBIngestPoolMax)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	registry := metrics.NewRegistry(time.Hour)
	cache := respcache.New()

	nwsBucket := ratelimit.NewBucket(nwsQPS)
	nwsBreaker := breaker.New(breaker.Config{Upstream: "NWS", Threshold: nwsCBThreshold, Window: nwsCBWindow, CoolDown: nwsCBCoolDown})
	nwsFabric := httpfabric.New("NWS", nwsBucket, nwsBreaker, registry, logger, fabricTimeout)
	nwsClient := nws.New(nwsFabric, cfg.NWSUserAgent, logger)
	nwsPipeline := nwsingest.New(nwsClient, st, logger)

	noaaBucket := ratelimit.NewBucket(cfg.NOAAQPS)
	noaaBreaker := breaker.New(breaker.Config{Upstream: "NOAA", Threshold: uint32(cfg.NOAACBThreshold), Window: cfg.NOAACBWindow, CoolDown: cfg.NOAACBCoolDown})
	noaaFabric := httpfabric.New("NOAA", noaaBucket, noaaBreaker, registry, logger, fabricTimeout)
	noaaClient := noaa.New(noaaFabric, cfg.NOAAToken, logger)

	var localSource noaaingest.LocalStationSource
	if cfg.StationHistoricDir != "" {
		stationsPath := cfg.StationHistoricDir + "/ghcnd-stations.txt"
		if src, err := stationsfile.Load(stationsPath); err != nil {
			logger.Warn("local stations file unavailable, falling back to NOAA API", zap.Error(err))
		} else {
			localSource = src
		}
	}
	noaaPipeline := noaaingest.New(noaaClient, st, localSource, cfg, logger)

	seedTrackedPoints(ctx, st, cfg.TrackedPoints, logger)

	sched := scheduler.New(logger)
	registerJobs(sched, st, nwsPipeline, noaaPipeline, cfg, logger)
	sched.Start(ctx)

	if cfg.StationHistoricDir != "" {
		runLocalImporter(ctx, cfg, st, logger)
	}

	deps := &api.Deps{
		Store:        st,
		Cache:        cache,
		Metrics:      registry,
		NWSClient:    nwsClient,
		NWSPipeline:  nwsPipeline,
		NOAAPipeline: noaaPipeline,
		Config:       cfg,
		Logger:       logger,
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: api.Router(deps),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.Int("port", cfg.APIPort))
		serveErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving API: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	sched.Stop(schedulerDrain)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// seedTrackedPoints inserts every configured TRACKED_POINTS entry that isn't
// already present, the `absent -> created` transition of spec §4.8.4's
// tracked-point state machine, performed once at startup.
func seedTrackedPoints(ctx context.Context, st *store.Store, seeds []config.TrackedSeed, logger *zap.Logger) {
	if len(seeds) == 0 {
		return
	}
	existing, err := st.ListTrackedPoints(ctx)
	if err != nil {
		logger.Warn("listing tracked points for seeding failed", zap.Error(err))
		return
	}
	have := make(map[string]bool, len(existing))
	for _, tp := range existing {
		have[fmt.Sprintf("%.6f,%.6f", tp.Lat, tp.Lon)] = true
	}
	for _, seed := range seeds {
		key := fmt.Sprintf("%.6f,%.6f", seed.Lat, seed.Lon)
		if have[key] {
			continue
		}
		if _, err := st.InsertTrackedPoint(ctx, "", models.Point{Lat: seed.Lat, Lon: seed.Lon}); err != nil {
			logger.Warn("seeding tracked point failed", zap.Float64("lat", seed.Lat), zap.Float64("lon", seed.Lon), zap.Error(err))
		}
	}
}

// registerJobs wires the job families of spec §4.4. "ml_bootstrap" is a
// no-op heartbeat: the ML model/prediction tables are owned by an external
// service (§3's Ownership rule never lists the ingest side as a writer for
// them), so the family only keeps the ingest-run bookkeeping consistent.
func registerJobs(sched *scheduler.Scheduler, st *store.Store, nwsPipeline *nwsingest.Pipeline, noaaPipeline *noaaingest.Pipeline, cfg *config.Config, logger *zap.Logger) {
	sched.Register("nws_gridpoints", cfg.SchedGridpoint, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "nws_gridpoints", func(ctx context.Context, run *ingestlog.Run) error {
			points, err := trackedPoints(ctx, st)
			if err != nil {
				return err
			}
			return nwsPipeline.RefreshGridpoints(ctx, points)
		})
	})

	sched.Register("nws_hourly", cfg.SchedHourly, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "nws_hourly", func(ctx context.Context, run *ingestlog.Run) error {
			gridpoints, err := st.AllGridpoints(ctx)
			if err != nil {
				return err
			}
			return nwsPipeline.IngestHourlyForecasts(ctx, gridpoints)
		})
	})

	sched.Register("nws_alerts", cfg.SchedAlerts, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "nws_alerts", func(ctx context.Context, run *ingestlog.Run) error {
			points, err := trackedPoints(ctx, st)
			if err != nil {
				return err
			}
			return nwsPipeline.IngestAlerts(ctx, points)
		})
	})

	sched.Register("noaa_stations", cfg.SchedNOAAStations, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "noaa_stations", func(ctx context.Context, run *ingestlog.Run) error {
			gridpoints, err := st.AllGridpoints(ctx)
			if err != nil {
				return err
			}
			return noaaPipeline.MapStations(ctx, gridpoints)
		})
	})

	sched.Register("noaa_daily", cfg.SchedNOAADaily, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "noaa_daily", func(ctx context.Context, run *ingestlog.Run) error {
			gridpoints, err := st.AllGridpoints(ctx)
			if err != nil {
				return err
			}
			gridIDs := make([]string, len(gridpoints))
			for i, gp := range gridpoints {
				gridIDs[i] = gp.GridID
			}
			clock := clockNowFor(cfg)
			if err := noaaPipeline.IngestDailyHistory(ctx, gridIDs, clock); err != nil {
				return err
			}
			return noaaPipeline.RefreshCachedAggregates(ctx, gridIDs, clock.AddDate(0, 0, -1), 30)
		})
	})

	sched.Register("ml_bootstrap", cfg.SchedNOAADaily, func(ctx context.Context) error {
		return scheduler.WithRun(ctx, st, "ml_bootstrap", func(ctx context.Context, run *ingestlog.Run) error {
			return nil
		})
	})
}

func trackedPoints(ctx context.Context, st *store.Store) ([]models.Point, error) {
	tracked, err := st.ListTrackedPoints(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]models.Point, len(tracked))
	for i, tp := range tracked {
		points[i] = tp.Point
	}
	return points, nil
}

func clockNowFor(cfg *config.Config) time.Time {
	loc, err := time.LoadLocation(cfg.ClockZone)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

// runLocalImporter runs the local historic CSV/tar.gz importer of spec §4.7
// once at startup; it is not one of §4.4's scheduled families, since the
// spec names it only as a directory-driven, resumable catch-up step.
func runLocalImporter(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) {
	statePath := cfg.StationHistoricStateFile
	if statePath == "" {
		statePath = cfg.StationHistoricDir + "/.import-state.json"
	}
	im, err := importer.New(cfg.StationHistoricDir, statePath, st, logger)
	if err != nil {
		logger.Warn("local importer construction failed", zap.Error(err))
		return
	}
	go func() {
		if err := im.Run(ctx); err != nil {
			logger.Warn("local importer run failed", zap.Error(err))
		}
	}()
}
