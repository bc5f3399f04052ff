package main

import (
	"context"
	"os"

	"github.com/kailas-cloud/carekb/internal/app"
	"github.com/kailas-cloud/carekb/internal/transport/cli"
)

func main() {
	cli.SetOpener(func(ctx context.Context, env string) (cli.Runtime, error) {
		a, err := app.Open(ctx, env)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
