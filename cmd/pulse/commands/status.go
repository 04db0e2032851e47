package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pulse/internal/pipeline"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	Long: `Queries a running pipeline's /api/status endpoint and prints a
summary of every stage.

Displayed:
- Queue: length, capacity, evictions
- Scheduler: in-flight, processed, retried, dropped
- Store: pending trades awaiting review
- Executor: executed and failed trades

Example:
  go run ./cmd/pulse status
  go run ./cmd/pulse status --refresh 5s
  go run ./cmd/pulse status --addr http://localhost:8080`,
	RunE: runStatus,
}

var (
	statusAddr    string
	statusRefresh time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "pipeline API address")
	statusCmd.Flags().DurationVar(&statusRefresh, "refresh", 0, "refresh interval (0 = print once)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusRefresh <= 0 {
		return printStatus()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()

	for {
		if err := printStatus(); err != nil {
			return err
		}
		select {
		case <-quit:
			return nil
		case <-ticker.C:
		}
	}
}

func printStatus() error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(statusAddr + "/api/status")
	if err != nil {
		return fmt.Errorf("pipeline not reachable at %s: %w", statusAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, statusAddr)
	}

	var status pipeline.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	fmt.Printf("=== Pulse Status (%s mode) ===\n", status.Mode)
	fmt.Printf("Queue:     %d/%d (evicted %d)\n",
		status.Queue.Length, status.Queue.Capacity, status.Queue.Evicted)
	fmt.Printf("Scheduler: %d in-flight, %d processed, %d retried, %d dropped\n",
		status.Scheduler.InFlight, status.Scheduler.Processed,
		status.Scheduler.Retried, status.Scheduler.Dropped)
	fmt.Printf("Resolver:  %d cache entries (%d hits / %d misses), %d inherited\n",
		status.Resolver.Cache.Entries, status.Resolver.Cache.Hits,
		status.Resolver.Cache.Misses, status.Resolver.Inherited)
	fmt.Printf("Sentiment: %d reused scores\n", status.ReusedScores)
	fmt.Printf("Store:     %d pending / %d active (created %d, decided %d, expired %d)\n",
		status.Store.Pending, status.Store.Active,
		status.Store.Created, status.Store.Decided, status.Store.Expired)
	fmt.Printf("Executor:  %d executed, %d failed\n",
		status.Executor.Executed, status.Executor.Failed)
	if len(status.Errors) > 0 {
		fmt.Printf("Errors:    %v\n", status.Errors)
	}
	fmt.Println()
	return nil
}
