package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	httpAPI "github.com/iyhunko/eco-consumo/internal/http"
	"github.com/iyhunko/eco-consumo/internal/http/controller"
	"github.com/iyhunko/eco-consumo/internal/metrics"
	sqlrepo "github.com/iyhunko/eco-consumo/internal/repository/sql"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the metrics server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf := configFrom(cmd)
		db, err := sqlrepo.OpenDB(cmd.Context(), conf.Database)
		if err != nil {
			return fmt.Errorf("error while opening database: %w", err)
		}
		defer db.Close()

		if err := sqlrepo.RunMigrations(db, conf.Database.MigrationsPath); err != nil {
			return err
		}
		slog.Info("Migrations applied", slog.String("source", conf.Database.MigrationsPath))
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <barcode>",
	Short: "Look a product up once and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conf := configFrom(cmd)
		db, err := sqlrepo.StartDB(ctx, conf.Database)
		if err != nil {
			return fmt.Errorf("error while starting database: %w", err)
		}
		defer db.Close()

		productService, err := newProductService(ctx, conf, db)
		if err != nil {
			return err
		}

		product, created, err := productService.GetOrFetch(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Created bool                       `json:"created"`
			Product controller.ProductResponse `json:"product"`
		}{created, controller.NewProductResponse(product)})
	},
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf := configFrom(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlrepo.StartDB(ctx, conf.Database)
	if err != nil {
		return fmt.Errorf("error while starting database: %w", err)
	}
	defer db.Close()

	productService, err := newProductService(ctx, conf, db)
	if err != nil {
		return err
	}

	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAPI.InitRouter(gin.New(), controller.New(db), controller.NewProductController(productService))

	metrics.StartMetricsServer(ctx, conf)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("error while listening to HTTP requests: %w", err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
