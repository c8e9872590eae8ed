// Package roddoc is an agent.Document backed by a live browser tab driven
// over the DevTools protocol.
package roddoc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/agent"
	"github.com/idilsaglam/issuestash/internal/config"
	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/model"
)

// rowsJS lists issue rows as JSON. Mirrors the selectors used by htmldoc.
const rowsJS = `() => {
	const rows = [];
	for (const el of document.querySelectorAll('[id^="issue_"]')) {
		const m = /^issue_(\d+)$/.exec(el.id);
		if (!m) continue;
		const link = el.querySelector('a.Link--primary');
		rows.push({
			number: Number(m[1]),
			title: link ? link.textContent.trim() : '',
			href: link ? link.getAttribute('href') : '',
			hidden: el.hasAttribute('data-issuestash-hidden'),
		});
	}
	return JSON.stringify(rows);
}`

const setVisibleJS = `(number, visible) => {
	const el = document.getElementById('issue_' + number);
	if (!el) return false;
	const marker = 'data-issuestash-hidden';
	if (!visible && !el.hasAttribute(marker)) {
		el.setAttribute(marker, el.getAttribute('style') || '');
		el.style.display = 'none';
	} else if (visible && el.hasAttribute(marker)) {
		const prev = el.getAttribute(marker);
		el.removeAttribute(marker);
		if (prev) el.setAttribute('style', prev); else el.removeAttribute('style');
	}
	return true;
}`

// Document is one browser tab. Calls are serialised.
type Document struct {
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	launch  *launcher.Launcher
	log     *zap.Logger
}

var _ agent.Document = (*Document)(nil)

// Open connects to cfg.DebuggerURL, or launches a browser when it is empty,
// and navigates a new tab to url.
func Open(ctx context.Context, cfg config.BrowserConfig, url string, log *zap.Logger) (*Document, error) {
	log = logging.OrNop(log)
	d := &Document{log: log}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		d.launch = l
		controlURL = u
	}
	log.Debug("connecting to browser", zap.String("control_url", controlURL))

	d.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := d.browser.Connect(); err != nil {
		d.browser = nil
		d.Close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	page, err := d.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		d.Close()
		return nil, fmt.Errorf("wait for page load: %w", err)
	}
	d.page = page
	return d, nil
}

// Location is the tab's current URL.
func (d *Document) Location(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// Items lists issue rows in document order.
func (d *Document) Items(ctx context.Context) ([]model.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.items(ctx)
}

func (d *Document) items(ctx context.Context) ([]model.Item, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}
	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{JS: rowsJS, ByValue: true})
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return parseRows(res.Value.Str(), agent.DescribePage(info.URL).Owner), nil
}

// SetVisible conceals or restores the row for id.
func (d *Document) SetVisible(ctx context.Context, id string, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.items(ctx)
	if err != nil {
		return err
	}
	number := 0
	for _, it := range items {
		if it.ID == id {
			number = it.Ref.Number
			break
		}
	}
	if number == 0 {
		return fmt.Errorf("%s: %w", id, agent.ErrUnknownItem)
	}

	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      setVisibleJS,
		JSArgs:  []interface{}{number, visible},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("set visibility of %s: %w", id, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%s: %w", id, agent.ErrUnknownItem)
	}
	return nil
}

// Close closes the browser connection and kills a browser we launched.
func (d *Document) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launch != nil {
		d.launch.Kill()
	}
	return err
}

// parseRows decodes the rowsJS result.
func parseRows(raw string, owner *model.OwnerPath) []model.Item {
	var items []model.Item
	gjson.Parse(raw).ForEach(func(_, row gjson.Result) bool {
		n := int(row.Get("number").Int())
		if n <= 0 {
			return true
		}
		items = append(items, model.Item{
			ID:        agent.RowItemID(row.Get("href").Str, n, owner),
			Ref:       model.ExternalRef{Number: n, Title: strings.TrimSpace(row.Get("title").Str)},
			IsVisible: !row.Get("hidden").Bool(),
		})
		return true
	})
	return items
}
