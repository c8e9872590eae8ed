package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/popup"
	"github.com/idilsaglam/issuestash/internal/ui"
)

func newPopupCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Open the popup for the active page.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withController(logging.DefaultPopupLogFile, func(ctrl *popup.Controller) error {
				return ui.RunPopup(ctrl, a.cfg.Popup.FeatureRequestURL, a.cfg.Popup.Timeout)
			})
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

func newHiddenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hidden",
		Short: "Print the issues hidden on the active page.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withController("", func(ctrl *popup.Controller) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Popup.Timeout)
				defer cancel()
				s, _ := ctrl.Load(ctx)
				if s.Instance == "" {
					ui.Fail(a.errOut, "no page agent is attached")
				}
				ui.Panel(a.out, ui.Summary(s, a.cfg.Popup.FeatureRequestURL))
				return nil
			})
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

// withController builds a popup controller dialing the agent and reading the
// store, and hands it to fn.
func (a *app) withController(logFallback string, fn func(*popup.Controller) error) error {
	log, err := a.logger(logFallback)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	policy, err := popup.ParseShowPolicy(a.cfg.Popup.ShowPolicy)
	if err != nil {
		return err
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	client := a.client(log)
	defer client.Close()

	return fn(popup.New(client, st, client, popup.WithPolicy(policy), popup.WithLogger(log)))
}
