package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/iyhunko/eco-consumo/internal/config"
	"github.com/iyhunko/eco-consumo/internal/logger"
	"github.com/iyhunko/eco-consumo/internal/openfoodfacts"
	sqlrepo "github.com/iyhunko/eco-consumo/internal/repository/sql"
	"github.com/iyhunko/eco-consumo/internal/service"
	sqspkg "github.com/iyhunko/eco-consumo/internal/sqs"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "product-service",
	Short: "Eco-score lookup service backed by Open Food Facts",
	Long: `product-service looks products up by barcode, caches them in PostgreSQL
and lets clients attach their own 0-10 evaluation. Running it without a
subcommand starts the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("error while loading config: %w", err)
		}
		logger.InitJSONLogger(conf.DebugMode)
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, conf))
		return nil
	},
	RunE: runServe,
}

type configKey struct{}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(lookupCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("product-service failed", slog.Any("err", err))
		os.Exit(1)
	}
}

// newProductService wires the lookup and rating flows to the database, Open Food Facts
// and, when a queue is configured, SQS.
func newProductService(ctx context.Context, conf *config.Config, db *sql.DB) (*service.ProductService, error) {
	fetcher := openfoodfacts.NewClient(conf.OpenFoodFacts.BaseURL,
		openfoodfacts.WithUserAgent(conf.OpenFoodFacts.UserAgent),
		openfoodfacts.WithRatePerMinute(conf.OpenFoodFacts.RatePerMinute),
	)

	var publisher service.EventPublisher
	if conf.AWS.SQSQueueURL != "" {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		if err != nil {
			return nil, err
		}
		publisher = sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
	} else {
		slog.Info("SQS_QUEUE_URL not set, product events are disabled")
	}

	return service.NewProductService(sqlrepo.NewProductRepository(db), fetcher, publisher), nil
}
