package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/popup"
)

// Panel draws lines inside a rounded border.
func Panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, borderStyle.Render(strings.Join(lines, "\n")))
}

// ProgressBar renders done/total as a bar with a percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Header is the popup title: "Issues" plus the repository when known.
func Header(s popup.State) string {
	h := titleStyle.Render("Issues")
	if s.OwnerLabel != "" {
		h += " " + accentStyle.Render("in @"+s.OwnerLabel)
	}
	return h
}

// Message is the body text for every view except the hidden list.
func Message(v popup.View, featureURL string) []string {
	switch v {
	case popup.ViewUnsupported:
		return []string{"This site is not supported."}
	case popup.ViewNoFeatures:
		lines := []string{"This GitHub tab currently has no features."}
		if featureURL != "" {
			lines = append(lines, mutedStyle.Render("Request a feature: ")+accentStyle.Render(featureURL))
		}
		return lines
	case popup.ViewAllVisible:
		return []string{successStyle.Render(symOK + " All issues are visible")}
	}
	return nil
}

// Summary renders one finished load cycle for non-interactive output.
func Summary(s popup.State, featureURL string) []string {
	v := popup.SelectView(s)
	lines := []string{Header(s)}
	if v != popup.ViewHiddenList {
		return append(lines, Message(v, featureURL)...)
	}
	for _, it := range s.Hidden {
		lines = append(lines, hiddenLine(it))
	}
	visible := s.PageItems - len(s.Hidden)
	if visible < 0 {
		visible = 0
	}
	lines = append(lines,
		"",
		fmt.Sprintf("%s %d  %s %d  %s %d",
			pendingStyle.Render(symHidden), len(s.Hidden),
			successStyle.Render(symOK), visible,
			accentStyle.Render("Total"), s.PageItems),
		ProgressBar(visible, s.PageItems, 28)+mutedStyle.Render(" visible"),
	)
	return lines
}

func hiddenLine(it model.Item) string {
	return fmt.Sprintf("%s %s %s", pendingStyle.Render(symHidden), it.Ref.Title, mutedStyle.Render(fmt.Sprintf("#%d", it.Ref.Number)))
}
