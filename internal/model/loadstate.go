package model

// LoadState is the popup's data-loading cycle state.
type LoadState int

const (
	Pending LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return "unknown"
}
