package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/agent"
	"github.com/idilsaglam/issuestash/internal/agent/htmldoc"
	"github.com/idilsaglam/issuestash/internal/agent/roddoc"
	"github.com/idilsaglam/issuestash/internal/config"
	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/transport"
)

type agentOptions struct {
	htmlFile string
	url      string
	out      string
}

func newAgentCommand(a *app) *cobra.Command {
	var opts agentOptions
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Attach to an issues page and serve it to the popup.",
		Long: `agent attaches to one page, conceals the issues stored as hidden, and serves
messenger calls over HTTP until interrupted.

With --html the page is a saved HTML file served from --url; without it,
--url is opened in a browser (browser.debugger_url or a launched one).`,
		Example: `  issuestash agent --url https://github.com/org/repo/issues
  issuestash agent --html issues.html --url https://github.com/org/repo/issues --out issues.out.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runAgent(ctx, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.htmlFile, "html", "", "saved HTML page to attach to")
	f.StringVar(&opts.url, "url", "", "page URL")
	f.StringVar(&opts.out, "out", "", "with --html, write the page back here on exit")
	f.String("listen", "", "listen address (default "+config.Default().Agent.Listen+")")
	return cmd
}

func (a *app) runAgent(ctx context.Context, opts agentOptions) error {
	if opts.url == "" {
		return errors.New("agent: --url is required")
	}
	log, err := a.logger("")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var doc agent.Document
	switch {
	case opts.htmlFile != "":
		f, err := os.Open(opts.htmlFile)
		if err != nil {
			return fmt.Errorf("open page: %w", err)
		}
		hd, err := htmldoc.Parse(f, opts.url)
		f.Close()
		if err != nil {
			return err
		}
		if opts.out != "" {
			defer writePage(hd, opts.out, log)
		}
		doc = hd
	default:
		rd, err := roddoc.Open(ctx, a.cfg.Browser, opts.url, log)
		if err != nil {
			return err
		}
		defer rd.Close()
		doc = rd
	}

	ag := agent.New(doc, st, log)
	if _, err := ag.Sync(ctx); err != nil {
		return fmt.Errorf("sync page: %w", err)
	}

	bus := messenger.NewBus()
	id := messenger.InstanceID(uuid.NewString())
	unregister := bus.Register(id, ag)
	defer unregister()
	log.Info("page attached", zap.String("instance", string(id)), zap.String("url", opts.url))

	ln, err := net.Listen("tcp", a.cfg.Agent.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return transport.NewServer(bus, a.cfg.Agent.Token, log).Run(ctx, ln)
}

func writePage(d *htmldoc.Document, path string, log *zap.Logger) {
	f, err := os.Create(path)
	if err != nil {
		log.Error("write page", zap.Error(err))
		return
	}
	defer f.Close()
	if err := d.Render(f); err != nil {
		log.Error("write page", zap.Error(err))
	}
}
