// Command betree-admin opens a tree against a local page store and serves
// it over the betreeadmin HTTP surface.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/go-betree/betree"
	"github.com/go-betree/betree/betreeadmin"
	"github.com/go-betree/betree/block"
)

func main() {
	betree.ConfigureLogging(betree.LoggingOptionsFromEnv())

	dataDir := flag.String("data-dir", "./betree-data", "root directory for page files")
	addr := flag.String("addr", "localhost:8080", "HTTP listen address")
	flag.Parse()

	ctx := context.Background()

	store, err := block.NewLocalStore(betree.DefaultParams().B, *dataDir)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}

	tree, err := betree.Open(ctx, store, betree.DefaultOptions())
	if err != nil {
		slog.Error("open tree", "error", err)
		os.Exit(1)
	}
	defer tree.Close(ctx)

	server := betreeadmin.New(tree)
	if err := server.Router().Run(*addr); err != nil {
		slog.Error("serve", "error", err)
		os.Exit(1)
	}
}
