package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/ui"
)

func newShowCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show ID",
		Short:   "Restore one hidden issue on the active page.",
		Example: "  issuestash show org/repo#42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sendItem(cmd.Context(), args[0], true)
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

func newHideCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hide ID",
		Short:   "Hide one issue on the active page.",
		Example: "  issuestash hide org/repo#42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sendItem(cmd.Context(), args[0], false)
		},
	}
	addEndpointFlag(cmd)
	return cmd
}

func (a *app) sendItem(ctx context.Context, id string, visible bool) error {
	_, _, number, err := model.ParseItemID(id)
	if err != nil {
		return err
	}
	log, err := a.logger("")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	client := a.client(log)
	defer client.Close()
	target, ok := client.Resolve(ctx)
	if !ok {
		return fmt.Errorf("no page agent is attached at %s", a.cfg.Popup.Endpoint)
	}

	if !visible {
		if err := messenger.HideItem(ctx, client, target, model.Item{ID: id}); err != nil {
			return err
		}
		ui.OK(a.out, "hidden "+id)
		return nil
	}

	item := model.Item{ID: id, Ref: model.ExternalRef{Number: number}}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	records, err := st.GetMany(ctx, []string{id})
	st.Close()
	if err != nil {
		return err
	}
	if rec, ok := records[id]; ok {
		item = rec
	}
	if err := messenger.ShowItem(ctx, client, target, item); err != nil {
		return err
	}
	ui.OK(a.out, "restored "+id)
	return nil
}
