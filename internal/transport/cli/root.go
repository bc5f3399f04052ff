// Package cli is the carekb command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/carekb/internal/config"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
)

// Runtime is the assembled engine the commands drive.
type Runtime interface {
	Initialize(ctx context.Context) map[string]domcol.Collection
	Search(ctx context.Context, req request.Request) ([]result.Scored, error)
	Status() []domcol.Collection
	Reset(ctx context.Context) error
	Serve(ctx context.Context) error
	Close()
}

// Opener builds a runtime for the named environment.
type Opener func(ctx context.Context, env string) (Runtime, error)

var (
	opener  Opener
	envName string
)

var rootCmd = &cobra.Command{
	Use:   "carekb",
	Short: "Pet care knowledge search",
	Long: `carekb indexes pet care guides and medication records into
topic collections and answers questions with hybrid vector and keyword search.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "configuration environment (config/<env>.yaml)")
}

// SetOpener installs the runtime constructor.
func SetOpener(o Opener) {
	opener = o
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func openRuntime(ctx context.Context) (Runtime, error) {
	if opener == nil {
		return nil, errors.New("runtime not configured")
	}
	return opener(ctx, envName)
}
