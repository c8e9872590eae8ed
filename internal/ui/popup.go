// Package ui renders the popup and the one-shot command output.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/popup"
)

// hiddenItem adapts a hidden model.Item to bubbles/list.Item.
type hiddenItem struct {
	model.Item
}

func (i hiddenItem) Title() string       { return i.Ref.Title }
func (i hiddenItem) Description() string { return fmt.Sprintf("#%d", i.Ref.Number) }
func (i hiddenItem) FilterValue() string { return i.Ref.Title }

// itemDelegate renders one hidden issue per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(hiddenItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+hiddenLine(it.Item))
}

type (
	loadedMsg struct{}
	shownMsg  struct {
		id  string
		err error
	}
)

var (
	showKey    = key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "show"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	quitKey    = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))
)

// Popup is the bubbletea model over a popup.Controller.
type Popup struct {
	ctrl       *popup.Controller
	featureURL string
	timeout    time.Duration

	state   popup.State
	list    list.Model
	spinner spinner.Model
	status  string
}

// NewPopup returns a Popup. timeout bounds each load cycle and each show.
func NewPopup(ctrl *popup.Controller, featureURL string, timeout time.Duration) Popup {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{showKey, refreshKey} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{showKey, refreshKey} }

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return Popup{
		ctrl:       ctrl,
		featureURL: featureURL,
		timeout:    timeout,
		state:      ctrl.State(),
		list:       l,
		spinner:    sp,
	}
}

// RunPopup runs the popup on the terminal until the user quits.
func RunPopup(ctrl *popup.Controller, featureURL string, timeout time.Duration) error {
	_, err := tea.NewProgram(NewPopup(ctrl, featureURL, timeout), tea.WithAltScreen()).Run()
	return err
}

func (m Popup) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Popup) ctx() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(context.Background(), m.timeout)
	}
	return context.WithCancel(context.Background())
}

// load runs one cycle off the UI goroutine.
func (m Popup) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		m.ctrl.Load(ctx)
		return loadedMsg{}
	}
}

func (m Popup) show(it model.Item) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return shownMsg{id: it.ID, err: m.ctrl.ShowItem(ctx, it)}
	}
}

func (m Popup) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.sync()
		return m, nil

	case shownMsg:
		m.status = ""
		if msg.err != nil {
			m.status = "could not show " + msg.id
		}
		m.sync()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, refreshKey):
			if m.state.LoadState != model.Loaded {
				return m, nil
			}
			m.ctrl.Refresh()
			m.status = ""
			m.sync()
			return m, tea.Batch(m.spinner.Tick, m.load())
		case key.Matches(msg, showKey):
			if popup.SelectView(m.state) != popup.ViewHiddenList {
				return m, nil
			}
			it, ok := m.list.SelectedItem().(hiddenItem)
			if !ok {
				return m, nil
			}
			return m, m.show(it.Item)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// sync copies the controller's state into the model.
func (m *Popup) sync() {
	m.state = m.ctrl.State()
	items := make([]list.Item, 0, len(m.state.Hidden))
	for _, it := range m.state.Hidden {
		items = append(items, hiddenItem{it})
	}
	m.list.SetItems(items)
}

func (m Popup) View() string {
	header := Header(m.state)
	if m.state.LoadState != model.Loaded {
		header += " " + m.spinner.View()
	}

	var body string
	switch v := popup.SelectView(m.state); {
	case m.state.LoadState != model.Loaded && len(m.state.Hidden) == 0:
		body = mutedStyle.Render("Loading…")
	case v == popup.ViewHiddenList:
		body = m.list.View()
	default:
		body = strings.Join(Message(v, m.featureURL), "\n")
	}

	out := header + "\n\n" + body
	if m.status != "" {
		out += "\n" + errorStyle.Render(symFail+" "+m.status)
	}
	return borderStyle.Render(out)
}
