package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ptpal-data/ptpal/internal/api"
	"github.com/ptpal-data/ptpal/internal/config"
	"github.com/ptpal-data/ptpal/internal/monitoring"
	"github.com/ptpal-data/ptpal/internal/pose"
	"github.com/ptpal-data/ptpal/internal/posedb"
	"github.com/ptpal-data/ptpal/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (mounts admin debug routes)")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "ptpal.db", "Path to the pose database (empty disables persistence)")
	configPath = flag.String("config", "", "Path to a tuning config JSON (defaults apply when empty)")
	migrations = flag.String("migrations", "migrations", "Path to the migrations directory")
)

func main() {
	flag.Parse()

	log.Printf("ptpal %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		if err := tuning.Validate(); err != nil {
			log.Fatalf("invalid tuning config: %v", err)
		}
		log.Printf("loaded tuning config from %s", *configPath)
	}
	engine := pose.NewEngine(tuning.Thresholds(), tuning.FramingConfig())

	var db *posedb.DB
	if *dbPath != "" {
		var err error
		db, err = posedb.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	} else {
		log.Print("persistence disabled; running engine-only")
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		if db != nil && *devMode {
			db.AttachAdminRoutes(mux)
		}

		apiMux := api.NewServer(engine, db).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// therapist-facing live monitor at the root
		mux.HandleFunc("/", liveMonitorHandler(db))

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			monitoring.Logf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
