package tui

import (
	"fmt"
	"time"

	"github.com/pders01/imgfind/internal/history"
	"github.com/pders01/imgfind/internal/imgur"
)

// thumbState is what the result list knows about a thumbnail.
type thumbState struct {
	size    int
	pending bool
	failed  bool
}

type resultItem struct {
	index int
	image imgur.Image
	thumb thumbState
}

func (i resultItem) Title() string {
	title := i.image.Title
	if title == "" {
		title = i.image.ID
	}
	return fmt.Sprintf("%d. %s", i.index+1, title)
}

func (i resultItem) Description() string {
	var thumb string
	switch {
	case i.thumb.size > 0:
		thumb = "▣ " + humanBytes(i.thumb.size)
	case i.thumb.failed:
		thumb = "✗ no thumbnail"
	case i.thumb.pending:
		thumb = "◌ loading"
	default:
		thumb = "□"
	}
	return renderMuted(thumb + " • " + truncateMiddle(i.image.Link, 60))
}

func (i resultItem) FilterValue() string { return i.image.Title }

type historyItem struct {
	entry history.Entry
	now   time.Time
}

func (i historyItem) Title() string { return i.entry.Term }

func (i historyItem) Description() string {
	return renderMuted(relativeTime(i.now, i.entry.Time()))
}

func (i historyItem) FilterValue() string { return i.entry.Term }

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
