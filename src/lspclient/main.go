package main

import (
	"fmt"
	"os"

	"github.com/uber/lsp-client/src/lspclient/app"
	"github.com/uber/lsp-client/src/lspclient/cmd"
	"go.uber.org/fx"
)

func opts() fx.Option {
	return fx.Options(
		app.Module,
	)
}

func main() {
	if err := cmd.NewRootCommand(opts()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
