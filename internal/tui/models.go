package tui

type View int

const (
	ViewSearch View = iota
	ViewDetail
	ViewHistory
	ViewHelp
)

// Focus is where key presses go inside ViewSearch.
type Focus int

const (
	FocusInput Focus = iota
	FocusResults
)
