package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/imgur"
)

var (
	sortCycle   = []imgur.Sort{imgur.SortTop, imgur.SortViral, imgur.SortTime}
	windowCycle = []imgur.Window{imgur.WindowAll, imgur.WindowDay, imgur.WindowWeek, imgur.WindowMonth, imgur.WindowYear}
)

type KeyHandler struct {
	app         *App
	keys        keyMap
	modifierKey string
}

func NewKeyHandler(app *App, cfg config.KeyConfig) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg), modifierKey: cfg.Modifier + "+"}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return kh.app, tea.Quit
	}
	if kh.isFiltering() {
		return kh.delegateToList(msg)
	}

	if cmd, handled := kh.handleGlobalKeys(msg); handled {
		return kh.app, cmd
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if key.Matches(msg, kh.keys.Quit) {
		return kh.app, tea.Quit
	}

	switch kh.app.view {
	case ViewSearch:
		return kh.handleResultsKeys(msg)
	case ViewDetail:
		return kh.handleDetailKeys(msg)
	case ViewHistory:
		return kh.handleHistoryKeys(msg)
	case ViewHelp:
		kh.app.view = kh.app.previousView
		return kh.app, nil
	}
	return kh.app, nil
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewSearch && kh.app.focus == FocusInput
}

func (kh *KeyHandler) isFiltering() bool {
	return kh.app.view == ViewHistory && kh.app.historyList.FilterState() == list.Filtering
}

// handleGlobalKeys handles the modifier bindings, which work in every view
// and even while typing.
func (kh *KeyHandler) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.History):
		if a.view == ViewHistory {
			return kh.navigateBack(), true
		}
		a.previousView = a.view
		a.view = ViewHistory
		a.refreshHistory()
		return nil, true

	case key.Matches(msg, kh.keys.Retry):
		a.session.Retry()
		if a.session.Loading() {
			a.setStatus(MsgRetrying, StatusInfo)
		} else {
			a.setStatus(MsgNoRetry, StatusInfo)
		}
		return nil, true

	case key.Matches(msg, kh.keys.Clear):
		a.input.Reset()
		a.session.Clear()
		a.suggestions = nil
		a.focus = FocusInput
		a.input.Focus()
		a.view = ViewSearch
		a.setStatus(MsgCleared, StatusInfo)
		return nil, true

	case key.Matches(msg, kh.keys.Sort):
		next := sortCycle[(indexOf(sortCycle, a.session.Sort())+1)%len(sortCycle)]
		return kh.setOptions(string(next), string(a.session.Window())), true

	case key.Matches(msg, kh.keys.Window):
		next := windowCycle[(indexOf(windowCycle, a.session.Window())+1)%len(windowCycle)]
		return kh.setOptions(string(a.session.Sort()), string(next)), true

	case key.Matches(msg, kh.keys.Open):
		if link, ok := kh.selectedLink(); ok {
			a.setStatus(MsgOpening, StatusInfo)
			return a.openImage(link), true
		}
		return nil, true
	}
	return nil, false
}

func (kh *KeyHandler) setOptions(sort, window string) tea.Cmd {
	a := kh.app
	if err := a.session.SetSearchOptions(sort, window); err != nil {
		a.setStatus(err.Error(), StatusError)
		return nil
	}
	a.setStatus(MsgOptions(sort, window), StatusInfo)
	return a.saveOptions()
}

func (kh *KeyHandler) selectedLink() (string, bool) {
	a := kh.app
	switch {
	case a.view == ViewDetail:
		return a.detailImage.Link, a.detailImage.Link != ""
	case a.view == ViewSearch && a.focus == FocusResults:
		if item, ok := a.results.SelectedItem().(resultItem); ok {
			return item.image.Link, true
		}
	}
	return "", false
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	switch msg.String() {
	case "enter":
		kh.submit(a.input.Value())
		return a, nil

	case "esc":
		if a.input.Value() != "" {
			a.input.Reset()
			a.suggestions = nil
			return a, nil
		}
		if len(a.results.Items()) > 0 {
			kh.focusResults()
		}
		return a, nil

	case "tab":
		if len(a.suggestions) > 0 {
			a.input.SetValue(a.suggestions[0])
			a.input.CursorEnd()
			a.refreshSuggestions()
			return a, nil
		}
		if len(a.results.Items()) > 0 {
			kh.focusResults()
		}
		return a, nil

	case "down":
		if len(a.results.Items()) > 0 {
			kh.focusResults()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.refreshSuggestions()
	return a, cmd
}

// submit starts a search for raw. Submitting the term already shown counts
// as engaging with it.
func (kh *KeyHandler) submit(raw string) {
	a := kh.app
	term := sanitizeSearchInput(raw)
	if term == "" {
		return
	}
	a.suggestions = nil
	if term == a.session.Term() {
		a.session.RecordCurrentTermInHistory()
		if len(a.results.Items()) > 0 {
			kh.focusResults()
		}
		return
	}
	a.session.Submit(term)
}

func (kh *KeyHandler) focusResults() {
	a := kh.app
	a.focus = FocusResults
	a.input.Blur()
	a.suggestions = nil
	a.afterCursorMove()
}

func (kh *KeyHandler) focusInput() {
	a := kh.app
	a.focus = FocusInput
	a.input.Focus()
	a.refreshSuggestions()
}

func (kh *KeyHandler) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Help):
		a.previousView = a.view
		a.view = ViewHelp
		return a, nil
	case key.Matches(msg, kh.keys.Back), msg.String() == "/", msg.String() == "tab", msg.String() == "shift+tab":
		kh.focusInput()
		return a, nil
	case msg.String() == "up" && a.results.Index() == 0:
		kh.focusInput()
		return a, nil
	case key.Matches(msg, kh.keys.Select):
		if item, ok := a.results.SelectedItem().(resultItem); ok {
			return a, kh.openDetail(item.index)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.results, cmd = a.results.Update(msg)
	a.afterCursorMove()
	return a, cmd
}

func (kh *KeyHandler) openDetail(i int) tea.Cmd {
	a := kh.app
	img, ok := a.session.ResultAt(i)
	if !ok {
		return nil
	}
	a.session.RecordCurrentTermInHistory()

	a.previousView = a.view
	a.view = ViewDetail
	a.detailIndex = i
	a.detailImage = img
	a.detailSize = 0
	a.detailPending = true
	a.viewport.GotoTop()

	if data, ok := a.session.RequestImage(detailSlot, img.Link); ok {
		a.detailSize = len(data)
	}
	return a.renderDetail()
}

func (kh *KeyHandler) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	if key.Matches(msg, kh.keys.Back) {
		return a, kh.navigateBack()
	}
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (kh *KeyHandler) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Back):
		return a, kh.navigateBack()

	case key.Matches(msg, kh.keys.Delete):
		if item, ok := a.historyList.SelectedItem().(historyItem); ok {
			a.session.RemoveHistoryEntry(item.entry.Term)
			a.setStatus(MsgRemovedHistory(item.entry.Term), StatusInfo)
		}
		return a, nil

	case key.Matches(msg, kh.keys.Select):
		if item, ok := a.historyList.SelectedItem().(historyItem); ok {
			a.view = ViewSearch
			a.focus = FocusInput
			a.input.Focus()
			a.input.SetValue(item.entry.Term)
			a.input.CursorEnd()
			kh.submit(item.entry.Term)
		}
		return a, nil
	}

	return kh.delegateToList(msg)
}

func (kh *KeyHandler) delegateToList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	kh.app.historyList, cmd = kh.app.historyList.Update(msg)
	return kh.app, cmd
}

func (kh *KeyHandler) navigateBack() tea.Cmd {
	a := kh.app
	switch a.view {
	case ViewDetail:
		a.session.ReleaseSlot(detailSlot)
		a.detailImage = imgur.Image{}
		a.view = ViewSearch
	case ViewHistory, ViewHelp:
		a.view = a.previousView
		if a.view == ViewHistory || a.view == ViewHelp {
			a.view = ViewSearch
		}
	}
	return nil
}

// sanitizeSearchInput collapses whitespace and bounds the length of a term.
func sanitizeSearchInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > 256 {
		input = string(r[:256])
	}
	return input
}

func indexOf[T comparable](values []T, v T) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}
