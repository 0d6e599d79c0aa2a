// The valuestore binary deploys and calls ValueStore contracts on a local,
// on-disk chain.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/solidifylabs/valuestore/cmd/valuestore/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := commands.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
