package popup

import "github.com/idilsaglam/issuestash/internal/model"

// View is which screen the popup shows.
type View int

const (
	// ViewUnsupported: the page is not on a site we understand.
	ViewUnsupported View = iota
	// ViewNoFeatures: supported site, but not the issues section.
	ViewNoFeatures
	// ViewAllVisible: issues section with nothing hidden.
	ViewAllVisible
	// ViewHiddenList: issues section with hidden items to restore.
	ViewHiddenList
)

func (v View) String() string {
	switch v {
	case ViewUnsupported:
		return "unsupported"
	case ViewNoFeatures:
		return "no-features"
	case ViewAllVisible:
		return "all-visible"
	case ViewHiddenList:
		return "hidden-list"
	}
	return "unknown"
}

// SelectView applies the display policy. The site check wins over the
// section check, which wins over the hidden list. An unknown page context
// (not loaded yet, or the page agent never answered) counts as "no features".
func SelectView(s State) View {
	if s.Page != nil && !s.Page.IsSupportedSite {
		return ViewUnsupported
	}
	if s.Page == nil || s.Page.Section != model.SectionIssues {
		return ViewNoFeatures
	}
	if len(s.Hidden) == 0 {
		return ViewAllVisible
	}
	return ViewHiddenList
}
