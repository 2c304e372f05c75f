package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/events"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/kafka"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the index tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		cmd.Printf("storage ready (%s)\n", a.Config.Storage.Driver)
		return nil
	},
}

var requestedBy string

var requestReindexCmd = &cobra.Command{
	Use:   "request-reindex [domain]",
	Short: "Ask the indexer service to rebuild a domain",
	Long: `Publishes a reindex request on kafka. The indexer service consuming
the reindex topic rebuilds and activates the domain.`,
	Args: cobra.ExactArgs(1),
	RunE: runRequestReindex,
}

func init() {
	requestReindexCmd.Flags().StringVar(&requestedBy, "by", defaultRequester(), "requester recorded on the event")
	rootCmd.AddCommand(migrateCmd, requestReindexCmd)
}

func defaultRequester() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "searchctl"
}

func runRequestReindex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled; run searchctl index %s instead", args[0])
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests)
	defer producer.Close()

	if err := events.NewRequester(producer).RequestReindex(cmd.Context(), args[0], requestedBy); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	cmd.Printf("reindex of %s requested\n", args[0])
	return nil
}
