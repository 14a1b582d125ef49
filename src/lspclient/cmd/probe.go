package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/uber/lsp-client/src/lspclient/controller/router"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/fs"
	"github.com/uber/lsp-client/src/lspclient/internal/languages"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

const _defaultProbeTimeout = 30 * time.Second

// ProbeResult is what the probe command prints.
type ProbeResult struct {
	Key          entity.Key           `json:"key"`
	Server       *protocol.ServerInfo `json:"server,omitempty"`
	Sync         string               `json:"sync"`
	Capabilities entity.Capabilities  `json:"capabilities"`
}

// NewProbeCommand creates the probe command, which starts the session serving one file and reports what its server supports.
func NewProbeCommand(app fx.Option) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Start the session for a file and print the negotiated capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			var (
				r        router.Router
				clientFS fs.ClientFS
			)
			a := fx.New(app, fx.NopLogger, fx.Populate(&r, &clientFS))
			if err := a.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := a.Start(ctx); err != nil {
				return err
			}

			result, err := probe(ctx, r, clientFS, path)
			stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
			defer stopCancel()
			if err = multierr.Append(err, a.Stop(stopCtx)); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", _defaultProbeTimeout, "bound for starting and stopping the session")
	return cmd
}

func probe(ctx context.Context, r router.Router, clientFS fs.ClientFS, path string) (*ProbeResult, error) {
	if !r.IsSupported(path) {
		return nil, fmt.Errorf("no language client registered for %q", path)
	}

	// Files outside a git checkout get an unrooted session.
	if root, err := clientFS.WorkspaceRoot(path); err == nil && root != "" {
		r.LoadWorkspace(root)
	}

	text, err := clientFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	s, err := r.GetOrCreateSession(ctx, path)
	if err != nil {
		return nil, err
	}

	docURI := uri.File(path)
	if err := r.OpenDocument(ctx, s, docURI, languages.Identifier(path), string(text)); err != nil {
		return nil, err
	}

	caps := s.Capabilities()
	result := &ProbeResult{
		Key:          s.Key(),
		Server:       s.ServerInfo(),
		Sync:         caps.Sync.String(),
		Capabilities: caps,
	}
	return result, r.CloseDocument(ctx, s, docURI)
}
