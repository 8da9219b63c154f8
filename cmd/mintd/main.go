// Command mintd runs the categorized-inventory registry daemon: a persistent
// registry store behind a small JSON HTTP API with Prometheus metrics and a
// compressed event journal.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mintcore/internal/blob"
	"mintcore/internal/core"
	"mintcore/internal/infra/metrics/prom"
	"mintcore/internal/ledger"
	"mintcore/internal/metadata"
	"mintcore/internal/notify"
	"mintcore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "http listen address")
		seedPath  = flag.String("seed", "", "seed yaml applied on first boot (optional)")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		tracePath = flag.String("trace", "", "write operation spans as JSON lines to this file (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[mintd] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	defer cancel()

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer closeIfCloser(store, logger, "store")

	blobs, err := blob.Open(ctx)
	if err != nil {
		logger.Fatalf("open blob store: %v", err)
	}

	validator, err := metadata.NewValidator()
	if err != nil {
		logger.Fatalf("compile metadata schema: %v", err)
	}

	journal := notify.NewJournal(filepath.Join(*dataDir, "events"))
	defer func() { _ = journal.Close() }()

	recorder := teeRecorder{
		prom.MustNew(prometheus.DefaultRegisterer),
		core.NewExpvarMetricsRecorder("mintd_service"),
	}

	opts := []core.ServiceOption{
		core.WithNotifier(journal),
		core.WithMetricsRecorder(recorder),
	}
	if *tracePath != "" {
		traceFile, err := os.OpenFile(*tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatalf("open trace file: %v", err)
		}
		defer func() { _ = traceFile.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceFile)))
	}

	owners := ledger.New(blobs, validator)
	policy := ledger.NewPolicyFromEnv()
	svc := core.NewService(store, owners, policy, opts...)

	if *seedPath != "" {
		seed, err := loadSeed(*seedPath)
		if err != nil {
			logger.Fatalf("load seed: %v", err)
		}
		actor := firstAdministrator()
		if actor == "" {
			logger.Fatalf("seeding requires MINTCORE_ADMINISTRATORS to be set")
		}
		if err := applySeed(ctx, svc, actor, seed); err != nil {
			logger.Fatalf("apply seed: %v", err)
		}
		logger.Printf("seeded %d categories, %d rules from %s", len(seed.Categories), len(seed.Rules), *seedPath)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(svc, promhttp.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("listening on %s (storage=%s blob=%s)", *addr, os.Getenv("MINTCORE_STORAGE_DRIVER"), blobs.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Printf("stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func firstAdministrator() domain.Address {
	for _, raw := range strings.Split(os.Getenv("MINTCORE_ADMINISTRATORS"), ",") {
		if a := strings.TrimSpace(raw); a != "" {
			return domain.Address(a)
		}
	}
	return ""
}

// teeRecorder feeds every observation to all recorders, so Prometheus and
// expvar see the same operation stream.
type teeRecorder []core.MetricsRecorder

func (t teeRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range t {
		r.Observe(ctx, operation, success, duration)
	}
}

func closeIfCloser(v any, logger *log.Logger, name string) {
	if c, ok := v.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Printf("close %s: %v", name, err)
		}
	}
}
