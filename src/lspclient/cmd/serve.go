package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/uber/lsp-client/src/lspclient/gateway/editor"
	"go.uber.org/fx"
)

// NewServeCommand creates the serve command, which runs the application until it is signaled to stop.
func NewServeCommand(app fx.Option) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the client until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fx.New(serveOptions(app, interactive, cmd.InOrStdin(), cmd.ErrOrStderr()))
			if err := a.Err(); err != nil {
				return err
			}
			a.Run()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "show server messages on stderr and answer server prompts from stdin")
	return cmd
}

// serveOptions adds a terminal presenter to app when interactive. Otherwise the editor gateway runs headless.
func serveOptions(app fx.Option, interactive bool, in io.Reader, out io.Writer) fx.Option {
	if !interactive {
		return app
	}
	return fx.Options(
		app,
		fx.Provide(func() editor.Presenter { return editor.NewTerminalPresenter(in, out) }),
	)
}
