package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joblens/extractor/internal/core/config"
	"github.com/joblens/extractor/internal/infra/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models served by each configured provider",
	Run:   runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tKIND\tMODELS")

	for _, pc := range cfg.Providers {
		client, err := llm.NewClient(pc.Kind, pc.Name, pc.BaseURL, pc.APIKey, pc.Model, pc.Timeout)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\terror: %v\n", pc.Name, pc.Kind, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		models, err := client.ListModels(ctx)
		cancel()
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\tunreachable: %v\n", pc.Name, pc.Kind, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", pc.Name, pc.Kind, strings.Join(models, ", "))
	}
	_ = w.Flush()
}
