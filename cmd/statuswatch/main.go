// Statuswatch server - watches a screen region for a contact's presence
// status and alerts on transitions
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statuswatch/statuswatch/internal/config"
	"github.com/statuswatch/statuswatch/internal/history"
	"github.com/statuswatch/statuswatch/internal/logging"
	"github.com/statuswatch/statuswatch/internal/metrics"
	"github.com/statuswatch/statuswatch/internal/monitor"
	"github.com/statuswatch/statuswatch/internal/notify"
	"github.com/statuswatch/statuswatch/internal/ocr"
	"github.com/statuswatch/statuswatch/internal/screen"
	"github.com/statuswatch/statuswatch/internal/server"
)

func main() {
	rt := config.LoadRuntime()
	slog.SetDefault(logging.NewLogger(rt.LogLevel, rt.LogJSON))

	store := config.NewStore(rt.ProfilePath)
	if err := store.Load(); err != nil {
		slog.Error("failed to load profile", "path", rt.ProfilePath, "error", err)
		os.Exit(1)
	}

	tuning, err := config.LoadTuning(rt.TuningPath)
	if err != nil {
		slog.Error("failed to load tuning", "path", rt.TuningPath, "error", err)
		os.Exit(1)
	}

	prof := store.Snapshot()
	recognizer := ocr.NewClient(prof.TesseractPath, prof.OCRLangs, tuning.OCR.Scale)

	capturer := screen.New()
	defer func() { _ = capturer.Close() }()

	hist := history.NewStore(rt.HistorySize)

	loop := monitor.New(monitor.Config{
		Store:        store,
		Tuning:       tuning,
		Capturer:     capturer,
		Recognizer:   recognizer,
		History:      hist,
		Throttle:     notify.NewThrottle(notify.LoadZone(rt.Timezone)),
		SMTPPassword: rt.SMTPPassword,
		DataDir:      rt.DataDir,
	})

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	metrics.SetRunningSource(func() float64 {
		if loop.Running() {
			return 1
		}
		return 0
	})

	// The lifetime context doubles as the shutdown trigger: monitor
	// starts requested over the API inherit it, so a signal stops a
	// running loop even mid-cycle.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx, loop, store, hist)

	httpServer := &http.Server{
		Addr:         rt.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("statuswatch starting", "http", rt.HTTPAddr, "profile", rt.ProfilePath, "person", prof.TargetPerson)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("signal received, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	loop.Stop()
	slog.Info("shutdown complete")
}
