package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/imagecache"
	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/session"
	"github.com/pders01/imgfind/internal/storage"
	"github.com/pders01/imgfind/internal/suggest"
)

// Opener shows a full-size image outside the terminal.
type Opener interface {
	Open(link string) error
}

// OptionsStore remembers the sort and window between runs.
type OptionsStore interface {
	SaveSearchOptions(storage.SearchOptions) error
}

type Deps struct {
	Config    *config.Config
	Client    session.Searcher
	History   session.History
	Images    imagecache.Fetcher
	Suggester suggest.Suggester
	Opener    Opener
	Options   OptionsStore

	// Sort and Window override the configured defaults when set.
	Sort   string
	Window string
}

const detailSlot imagecache.Requester = "detail"

const suggestionLimit = 5

type App struct {
	config     *config.Config
	session    *session.Session
	exec       *programExecutor
	cancel     func()
	opener     Opener
	options    OptionsStore
	keyHandler *KeyHandler

	input       textinput.Model
	results     list.Model
	historyList list.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view         View
	previousView View
	focus        Focus
	suggestions  []string
	thumbs       map[string]thumbState

	detailIndex   int
	detailImage   imgur.Image
	detailSize    int
	detailPending bool

	status     string
	statusKind StatusKind
	width      int
	height     int

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	prefetchThreshold int
	pageSlots         int

	// pending collects commands produced by observer callbacks until
	// Update returns.
	pending []tea.Cmd
	now     func() time.Time
}

func NewApp(d Deps) (*App, error) {
	if d.Config == nil {
		return nil, errors.New("tui: config is required")
	}
	cfg := d.Config

	sortName, windowName := cfg.API.DefaultSort, cfg.API.DefaultWindow
	if d.Sort != "" {
		sortName = d.Sort
	}
	if d.Window != "" {
		windowName = d.Window
	}
	sort, err := imgur.ParseSort(sortName)
	if err != nil {
		return nil, err
	}
	window, err := imgur.ParseWindow(windowName)
	if err != nil {
		return nil, err
	}

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.Title = "› results"
	results.SetShowStatusBar(false)
	results.SetShowHelp(false)
	results.SetFilteringEnabled(false)
	results.DisableQuitKeybindings()

	historyList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	historyList.Title = "› history"
	historyList.SetShowStatusBar(false)
	historyList.SetShowHelp(false)
	historyList.SetFilteringEnabled(true)
	historyList.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "Search images..."
	ti.CharLimit = 256
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	a := &App{
		config:            cfg,
		exec:              newProgramExecutor(),
		opener:            d.Opener,
		options:           d.Options,
		input:             ti,
		results:           results,
		historyList:       historyList,
		viewport:          viewport.New(0, 0),
		spinner:           sp,
		help:              help.New(),
		view:              ViewSearch,
		previousView:      ViewSearch,
		focus:             FocusInput,
		thumbs:            make(map[string]thumbState),
		prefetchThreshold: cfg.UI.PrefetchThreshold,
		pageSlots:         cfg.UI.PageSlots,
		now:               time.Now,
	}
	if a.pageSlots <= 0 {
		a.pageSlots = 24
	}
	a.keyHandler = NewKeyHandler(a, cfg.Keys)

	s, err := session.New(session.Options{
		Executor:  a.exec,
		Client:    d.Client,
		History:   d.History,
		Images:    d.Images,
		Suggester: d.Suggester,
		Observer:  a,
		Sort:      sort,
		Window:    window,
	})
	if err != nil {
		a.exec.close()
		return nil, err
	}
	a.session = s
	a.cancel = d.Client.Cancel
	a.refreshHistory()

	return a, nil
}

// Run starts the full-screen program and blocks until the user quits.
func Run(d Deps) error {
	a, err := NewApp(d)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(a, tea.WithAltScreen())
	a.exec.attach(p.Send)
	_, err = p.Run()
	return err
}

// Close aborts the running search and stops forwarding session work.
func (a *App) Close() {
	a.cancel()
	a.session.Close()
	a.exec.close()
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg.fn()

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		model, cmd := a.keyHandler.HandleKey(msg)
		return model, tea.Batch(cmd, a.flush())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case detailRenderedMsg:
		if a.view == ViewDetail && msg.index == a.detailIndex {
			a.viewport.SetContent(msg.content)
			a.detailPending = false
		}

	case openedMsg:
		if msg.err != nil {
			a.setStatus(msg.err.Error(), StatusError)
		} else {
			a.setStatus("Opened "+truncateMiddle(msg.link, 50), StatusSuccess)
		}

	case statusMsg:
		a.setStatus(msg.text, msg.kind)
	}

	return a, a.flush()
}

func (a *App) flush() tea.Cmd {
	if len(a.pending) == 0 {
		return nil
	}
	cmds := a.pending
	a.pending = nil
	return tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	// header, framed input, suggestions, separator and footer
	listHeight := height - 9
	if listHeight < 5 {
		listHeight = 5
	}
	a.results.SetSize(width, listHeight)
	a.historyList.SetSize(width, height-3)
	a.viewport.Width = width
	a.viewport.Height = height - 3

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = width - 4
	}
	a.input.Width = inputWidth

	a.requestVisibleThumbnails()
	if a.view == ViewDetail {
		a.pending = append(a.pending, a.renderDetail())
	}
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wrap := (a.width * 9) / 10
	if wrap > 120 {
		wrap = 120
	}
	if wrap < 40 {
		wrap = 40
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wrap) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wrap
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Observer callbacks. They run inside Update.

func (a *App) OnResultsChanged(term string, changeCount int) {
	if changeCount < 0 {
		a.pending = append(a.pending, a.results.SetItems(nil))
		a.results.ResetSelected()
		a.releaseSlots()
		if term == "" {
			a.clearStatus()
		} else {
			a.setStatus(MsgSearching, StatusInfo)
		}
		return
	}

	a.syncResults()
	if changeCount == 0 {
		a.setStatus(MsgNoResults(term), StatusWarn)
	} else {
		a.clearStatus()
	}
	a.requestVisibleThumbnails()
}

func (a *App) OnHistoryChanged() {
	a.refreshHistory()
	a.refreshSuggestions()
}

func (a *App) OnImageReady(url string, data []byte) {
	if a.view == ViewDetail && url == a.detailImage.Link {
		a.detailSize = len(data)
		a.pending = append(a.pending, a.renderDetail())
	}

	if _, tracked := a.thumbs[url]; !tracked {
		return
	}
	a.thumbs[url] = thumbState{size: len(data)}
	for i, item := range a.results.Items() {
		if r, ok := item.(resultItem); ok && r.image.Thumbnail == url {
			a.refreshItem(i)
		}
	}
}

func (a *App) OnSearchFailed(term string, page int, err error) {
	text := MsgSearchFailed(term, page, err)
	if !errors.As(err, new(*imgur.EncodingError)) {
		text += " • " + a.keyHandler.keys.Retry.Help().Key + ": retry"
	}
	a.setStatus(text, StatusError)
}

func (a *App) syncResults() {
	n := a.session.ResultCount()
	items := make([]list.Item, n)
	for i := 0; i < n; i++ {
		img, _ := a.session.ResultAt(i)
		items[i] = resultItem{index: i, image: img, thumb: a.thumbs[img.Thumbnail]}
	}
	a.pending = append(a.pending, a.results.SetItems(items))
}

func (a *App) refreshItem(i int) {
	items := a.results.Items()
	if i < 0 || i >= len(items) {
		return
	}
	item, ok := items[i].(resultItem)
	if !ok {
		return
	}
	item.thumb = a.thumbs[item.image.Thumbnail]
	a.pending = append(a.pending, a.results.SetItem(i, item))
}

func (a *App) slotFor(i int) imagecache.Requester {
	return imagecache.Requester(fmt.Sprintf("slot-%d", i%a.pageSlots))
}

// requestVisibleThumbnails points one slot at each result on the current
// list page and releases the slots that show nothing.
func (a *App) requestVisibleThumbnails() {
	n := len(a.results.Items())
	used := make(map[imagecache.Requester]bool)

	if n > 0 {
		start, end := a.results.Paginator.GetSliceBounds(n)
		for i := start; i < end; i++ {
			slot := a.slotFor(i)
			used[slot] = true

			url, ok := a.session.ThumbnailURL(i)
			if !ok {
				continue
			}
			if st := a.thumbs[url]; st.size > 0 {
				a.session.ReleaseSlot(slot)
				continue
			}
			data, ok := a.session.RequestThumbnail(slot, i)
			if ok {
				a.thumbs[url] = thumbState{size: len(data)}
			} else {
				a.thumbs[url] = thumbState{pending: true}
			}
			a.refreshItem(i)
		}
	}

	for s := 0; s < a.pageSlots; s++ {
		slot := a.slotFor(s)
		if !used[slot] {
			a.session.ReleaseSlot(slot)
		}
	}
}

func (a *App) releaseSlots() {
	for s := 0; s < a.pageSlots; s++ {
		a.session.ReleaseSlot(a.slotFor(s))
	}
}

func (a *App) refreshHistory() {
	entries := a.session.History()
	now := a.now()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = historyItem{entry: e, now: now}
	}
	a.pending = append(a.pending, a.historyList.SetItems(items))
}

func (a *App) refreshSuggestions() {
	value := strings.TrimSpace(a.input.Value())
	if value == "" || a.focus != FocusInput {
		a.suggestions = nil
		return
	}
	var out []string
	for _, s := range a.session.Suggest(value, suggestionLimit+1) {
		if s != value {
			out = append(out, s)
		}
	}
	if len(out) > suggestionLimit {
		out = out[:suggestionLimit]
	}
	a.suggestions = out
}

// afterCursorMove runs whenever the result selection may have changed.
func (a *App) afterCursorMove() {
	n := len(a.results.Items())
	if n == 0 {
		return
	}
	a.session.RecordCurrentTermInHistory()

	if n-a.results.Index() <= a.prefetchThreshold {
		a.session.FetchNextPage()
	}
	a.requestVisibleThumbnails()
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewSearch:
		content = a.searchView()
	case ViewDetail:
		if a.detailPending {
			content = renderCentered(a.width, a.height-3, renderMuted("Loading…"))
		} else {
			content = a.viewport.View()
		}
	case ViewHistory:
		if len(a.historyList.Items()) == 0 {
			content = renderCentered(a.width, a.height-3, renderMuted("No searches yet"))
		} else {
			content = a.historyList.View()
		}
	case ViewHelp:
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderHeader("› keys", "press any key to return", a.width),
			"",
			a.help.FullHelpView(keyHelp{keys: a.keyHandler.keys, view: a.previousView}.FullHelp()),
		)
		content = lipgloss.NewStyle().Height(a.height - 3).Render(content)
	}

	return lipgloss.JoinVertical(lipgloss.Top, content, renderSeparator(a.width-1), a.footer())
}

func (a *App) searchView() string {
	subtitle := MsgOptions(string(a.session.Sort()), string(a.session.Window()))
	if term := a.session.Term(); term != "" {
		subtitle = fmt.Sprintf("'%s' • %s", truncateEnd(term, 40), subtitle)
	}

	rows := []string{
		renderHeader("› search", subtitle, a.width),
		renderInputFrame(a.input.View(), a.focus == FocusInput, a.input.Width),
		renderSuggestions(a.suggestions),
	}

	var body string
	switch {
	case a.session.Term() == "":
		body = renderCentered(a.width, a.results.Height(), GetWelcomeMessage())
	case len(a.results.Items()) == 0:
		body = renderCentered(a.width, a.results.Height(), renderMuted(a.session.Status().String()))
	default:
		body = a.results.View()
	}
	rows = append(rows, body)

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - 3).
		MaxHeight(a.height - 3).
		Render(lipgloss.JoinVertical(lipgloss.Top, rows...))
}

// footer shows the session status, the latest message and key help.
func (a *App) footer() string {
	var parts []string

	st := a.session.Status()
	switch st.Kind {
	case session.StatusLoading:
		if a.session.Page() == 0 {
			parts = append(parts, a.spinner.View()+" "+MsgSearching)
		} else {
			parts = append(parts, a.spinner.View()+" "+MsgLoadingMore)
		}
	case session.StatusEmpty:
		parts = append(parts, StatusWarnStyle.Render(fmt.Sprintf("%s • page %d", MsgResultsCount(a.session.ResultCount()), a.session.Page())))
	case session.StatusResults:
		parts = append(parts, StatusInfoStyle.Render(fmt.Sprintf("%s • page %d", MsgResultsCount(a.session.ResultCount()), a.session.Page())))
	}

	if a.status != "" && a.status != MsgSearching {
		parts = append(parts, a.statusKind.style()(a.status))
	}

	sep := renderMuted(" │ ")
	view := a.view
	if view == ViewHelp {
		view = a.previousView
	}
	// key help takes whatever room is left on the line
	a.help.Width = a.width - 2 - lipgloss.Width(strings.Join(parts, sep)) - lipgloss.Width(sep)
	if a.help.Width >= 10 {
		parts = append(parts, a.help.ShortHelpView(keyHelp{keys: a.keyHandler.keys, view: view}.ShortHelp()))
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Render(strings.Join(parts, sep))
}

type detailRenderedMsg struct {
	index   int
	content string
}

type openedMsg struct {
	link string
	err  error
}

type statusMsg struct {
	text string
	kind StatusKind
}
