// Package cli wires the issuestash commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/config"
	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/store"
	"github.com/idilsaglam/issuestash/internal/transport"
	"github.com/idilsaglam/issuestash/internal/ui"
)

// app is shared by every command of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:   "issuestash",
		Short: "Hide GitHub issues from a page and restore them later.",
		Long: `issuestash keeps a per-issue visibility record. A page agent conceals the
issues you hid whenever their page is rendered; the popup lists what is hidden
on the current page and puts issues back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.issuestash.yaml)")
	pf.StringP("loglevel", "l", "", "log level: debug, info, warn, error")
	pf.String("logfile", "", "log file (default depends on the command)")
	pf.String("store", "", "store backend: sqlite or json")
	pf.String("store-path", "", "store file")

	root.AddCommand(
		newAgentCommand(a),
		newPopupCommand(a),
		newHiddenCommand(a),
		newShowCommand(a),
		newHideCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		ui.Fail(root.ErrOrStderr(), err.Error())
		return 1
	}
	return 0
}

// logger builds the command's logger; fallback is used when logging.file is unset.
func (a *app) logger(fallback string) (*zap.Logger, error) {
	return logging.New(a.cfg.Logging, fallback)
}

func (a *app) openStore() (store.Store, error) {
	return store.Open(a.cfg.Store)
}

func (a *app) client(log *zap.Logger) *transport.Client {
	return transport.NewClient(a.cfg.Popup.Endpoint, a.cfg.Popup.Token, a.cfg.Popup.Timeout, log)
}

// addEndpointFlag registers --endpoint for commands that dial the agent.
func addEndpointFlag(cmd *cobra.Command) {
	cmd.Flags().String("endpoint", "", fmt.Sprintf("agent endpoint (default %s)", config.Default().Popup.Endpoint))
}
