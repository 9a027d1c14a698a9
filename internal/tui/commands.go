package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/imgfind/internal/storage"
)

// renderDetail renders the selected result as markdown. The renderer is
// prepared here, on the event loop; only the rendering runs in the command.
func (a *App) renderDetail() tea.Cmd {
	img := a.detailImage
	index := a.detailIndex
	total := a.session.ResultCount()
	size := a.detailSize

	var md strings.Builder
	title := img.Title
	if title == "" {
		title = img.ID
	}
	fmt.Fprintf(&md, "# %s\n\n", title)
	if img.Description != "" {
		fmt.Fprintf(&md, "%s\n\n", img.Description)
	}
	md.WriteString("| field | value |\n|---|---|\n")
	fmt.Fprintf(&md, "| result | %d of %d |\n", index+1, total)
	fmt.Fprintf(&md, "| id | `%s` |\n", img.ID)
	fmt.Fprintf(&md, "| link | %s |\n", img.Link)
	fmt.Fprintf(&md, "| thumbnail | %s |\n", img.Thumbnail)
	if size > 0 {
		fmt.Fprintf(&md, "| full image | %s |\n", humanBytes(size))
	} else {
		md.WriteString("| full image | downloading… |\n")
	}

	r, err := a.getRenderer()
	if err != nil {
		content := "Error initializing renderer: " + err.Error()
		return func() tea.Msg { return detailRenderedMsg{index: index, content: content} }
	}

	source := md.String()
	return func() tea.Msg {
		out, err := r.Render(source)
		if err != nil {
			out = fmt.Sprintf("Failed to render %s: %v\n\n%s", img.ID, err, source)
		}
		return detailRenderedMsg{index: index, content: out}
	}
}

func (a *App) openImage(link string) tea.Cmd {
	if a.opener == nil {
		return func() tea.Msg {
			return openedMsg{link: link, err: errors.New("no image viewer configured")}
		}
	}
	opener := a.opener
	return func() tea.Msg {
		if err := opener.Open(link); err != nil {
			return openedMsg{link: link, err: fmt.Errorf("open %s: %w", link, err)}
		}
		return openedMsg{link: link}
	}
}

// saveOptions persists the session's sort and window off the event loop.
func (a *App) saveOptions() tea.Cmd {
	if a.options == nil {
		return nil
	}
	store := a.options
	opts := storage.SearchOptions{
		Sort:   string(a.session.Sort()),
		Window: string(a.session.Window()),
	}
	return func() tea.Msg {
		if err := store.SaveSearchOptions(opts); err != nil {
			return statusMsg{text: fmt.Sprintf("saving search options: %v", err), kind: StatusWarn}
		}
		return nil
	}
}
