package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joblens/extractor/internal/core/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the circuit breaker state of all configured providers",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health/providers", cfg.Server.Port))
	if err != nil {
		slog.Error("Failed to reach extractor, is it running?", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report struct {
		Status    string `json:"status"`
		Providers []struct {
			Provider  string `json:"provider"`
			State     string `json:"state"`
			Failures  int    `json:"failures"`
			Successes int    `json:"successes"`
			Available bool   `json:"available"`
		} `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode status response", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Overall: %s\n\n", report.Status)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tSTATE\tFAILURES\tSUCCESSES\tAVAILABLE")

	for _, p := range report.Providers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n",
			p.Provider, p.State, p.Failures, p.Successes, p.Available)
	}
	_ = w.Flush()
}
