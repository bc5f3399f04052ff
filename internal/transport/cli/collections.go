package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API and loads every collection in the background.
Collections that are still loading answer health checks as pending.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Load or build every collection",
	Long: `Loads each domain's persisted index, or builds it from the corpus
when none exists, and prints the resulting status.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every persisted index",
	Long:  `Drops all persisted collection indexes. The next start rebuilds them from the corpus.`,
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(serveCmd, initCmd, resetCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.Serve(ctx)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	cols := rt.Initialize(ctx)
	if len(cols) == 0 {
		return errors.New("no collections configured")
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := 0
	cmd.Println("Collections:")
	for _, name := range names {
		c := cols[name]
		if c.Ready() {
			ready++
		}
		printCollection(cmd, c)
	}
	if ready == 0 {
		return errors.New("no collection is ready")
	}
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index reset. Collections will be rebuilt on next start.")
	return nil
}

func printCollection(cmd *cobra.Command, c domcol.Collection) {
	switch {
	case c.Ready():
		cmd.Printf("  %-12s %s (%d chunks, index %s)\n", c.Name(), c.State(), c.ChunkCount(), c.IndexName())
	case c.LastError() != "":
		cmd.Printf("  %-12s %s: %s\n", c.Name(), c.State(), c.LastError())
	default:
		cmd.Printf("  %-12s %s\n", c.Name(), c.State())
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
