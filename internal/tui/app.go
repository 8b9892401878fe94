package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/broadcast"
	"github.com/matheuskafuri/briefly/internal/browser"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/category"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/likes"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"github.com/matheuskafuri/briefly/internal/surface"
	"go.uber.org/zap"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeHome mode = iota
	modeNormal
	modeSearch
	modeFilter
	modeHelp
)

// Feeds assembles the article lists.
type Feeds interface {
	Plain(ctx context.Context, cat category.Category) (feed.View, error)
	Personalized(ctx context.Context, userID string, cat category.Category) (feed.View, error)
	Liked(ctx context.Context, userID string) (feed.View, error)
}

// Toggler flips likes and reports toggles in flight.
type Toggler interface {
	Toggle(ctx context.Context, userID, rawID string) (likes.Outcome, error)
	Presume(id article.ID) bool
	Pending(id article.ID) bool
}

// Store is the local cache as seen by the browser.
type Store interface {
	broadcast.LikeReader
	NeedsRefresh(interval time.Duration) bool
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Feeds      Feeds
	Likes      Toggler
	LikeSource surface.LikeSource
	// Bus must be the bus the Toggler publishes to.
	Bus     *broadcast.Bus
	Store   Store
	Session cache.Session

	// Mode is the view to open with; empty starts on the home screen.
	Mode     feed.Mode
	Category category.Category
	// Site is the web front end, used for articles without a source URL.
	Site string

	RefreshInterval time.Duration
	// Relayed means the bus listens to other processes. Without it, or once
	// the relays fail, the surfaces poll the store every PollInterval.
	Relayed      bool
	PollInterval time.Duration
	Debounce     time.Duration

	Logger *zap.Logger
}

type App struct {
	opts RunOpts
	log  *zap.Logger

	list    *surface.Surface
	preview *surface.Surface
	updates chan struct{}
	polling bool

	all      []article.Article
	articles []article.Article
	view     feed.View
	cursor   int
	focus    focusPane
	mode     mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar

	loading       bool
	seq           int
	previewScroll int
	err           error
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search titles..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	startMode := modeHome
	if opts.Mode != "" {
		startMode = modeNormal
	}
	initial := opts.Mode
	if initial == "" {
		initial = feed.ModePlain
	}

	a := &App{
		opts:        opts,
		log:         logger.OrNop(opts.Logger).Named("tui"),
		updates:     make(chan struct{}, 1),
		mode:        startMode,
		searchInput: ti,
		spinner:     sp,
		filterBar:   newFilterBar(initial, opts.Category),
	}

	so := surface.Options{Debounce: opts.Debounce, OnUpdate: a.signal, Logger: opts.Logger}
	a.list = surface.Mount("list", opts.Bus, opts.LikeSource, opts.Session.UserID, so)
	a.preview = surface.Mount("preview", opts.Bus, opts.LikeSource, opts.Session.UserID, so)
	if !opts.Relayed {
		a.startPolling()
	}
	return a
}

// signal wakes the update loop. Surfaces call it from any goroutine.
func (a *App) signal() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

func (a *App) startPolling() {
	if a.polling || a.opts.Store == nil || a.opts.PollInterval <= 0 {
		return
	}
	a.polling = true
	a.list.Poll(a.opts.Store, a.opts.PollInterval)
	a.preview.Poll(a.opts.Store, a.opts.PollInterval)
}

// Close unmounts both surfaces.
func (a *App) Close() {
	a.list.Close()
	a.preview.Close()
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.syncCmd(), a.waitForUpdate(), a.tickCmd()}
	if a.mode == modeNormal {
		cmds = append(cmds, a.loadCmd(), a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) userID() string { return a.opts.Session.UserID }

func (a *App) syncCmd() tea.Cmd {
	if a.userID() == "" || a.opts.LikeSource == nil {
		return nil
	}
	list, preview := a.list, a.preview
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		list.Sync(ctx)
		preview.Sync(ctx)
		return nil
	}
}

func (a *App) waitForUpdate() tea.Cmd {
	ch := a.updates
	return func() tea.Msg {
		<-ch
		return likesChangedMsg{}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// loadCmd captures the current mode and category into the closure to avoid
// races.
func (a *App) loadCmd() tea.Cmd {
	a.seq++
	a.loading = true
	seq := a.seq
	feeds := a.opts.Feeds
	m := a.filterBar.mode
	cat := a.filterBar.active
	user := a.userID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var (
			v   feed.View
			err error
		)
		switch m {
		case feed.ModePersonalized:
			v, err = feeds.Personalized(ctx, user, cat)
		case feed.ModeLiked:
			v, err = feeds.Liked(ctx, user)
		default:
			v, err = feeds.Plain(ctx, cat)
		}
		return viewLoadedMsg{seq: seq, view: v, err: err}
	}
}

func (a *App) toggleCmd(id article.ID) tea.Cmd {
	presumed := a.opts.Likes.Presume(id)
	a.list.Speculate(id, presumed)
	a.preview.Speculate(id, presumed)

	t := a.opts.Likes
	user := a.userID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		out, err := t.Toggle(ctx, user, string(id))
		return toggleDoneMsg{id: id, outcome: out, err: err}
	}
}

func (a *App) openCmd(art article.Article) tea.Cmd {
	site := a.opts.Site
	return func() tea.Msg {
		if err := browser.OpenArticle(art, site); err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) selected() *article.Article {
	if len(a.articles) == 0 || a.cursor >= len(a.articles) {
		return nil
	}
	return &a.articles[a.cursor]
}

func (a *App) trackSelected() {
	if sel := a.selected(); sel != nil {
		a.preview.Track(sel.ID)
	} else {
		a.preview.Track()
	}
}

// applySearch narrows the loaded view to titles matching the search input.
func (a *App) applySearch() {
	q := strings.ToLower(strings.TrimSpace(a.searchInput.Value()))
	if q == "" {
		a.articles = a.all
	} else {
		a.articles = nil
		for _, art := range a.all {
			if strings.Contains(strings.ToLower(art.Title), q) {
				a.articles = append(a.articles, art)
			}
		}
	}
	if a.cursor >= len(a.articles) {
		a.cursor = max(0, len(a.articles)-1)
	}

	ids := make([]article.ID, len(a.articles))
	for i, art := range a.articles {
		ids[i] = art.ID
	}
	a.list.Track(ids...)
	a.trackSelected()
}

func (a *App) rowState(s *surface.Surface) func(article.ID) rowState {
	return func(id article.ID) rowState {
		return rowState{liked: s.Liked(id), pending: a.opts.Likes != nil && a.opts.Likes.Pending(id)}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case viewLoadedMsg:
		if msg.seq != a.seq {
			return a, nil
		}
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.view = msg.view
		a.all = msg.view.Articles
		a.previewScroll = 0
		a.applySearch()
		return a, nil

	case feedErrMsg:
		a.err = msg.err
		return a, nil

	case relayDownMsg:
		a.log.Info("relays stopped, polling the cache", zap.String("error", logger.SanitizeError(msg.err)))
		a.startPolling()
		return a, nil

	case toggleDoneMsg:
		a.list.Settle(msg.id)
		a.preview.Settle(msg.id)
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		if a.view.Mode == feed.ModeLiked && !msg.outcome.Liked {
			a.removeArticle(msg.id)
		}
		return a, nil

	case likesChangedMsg:
		return a, a.waitForUpdate()

	case refreshTickMsg:
		cmds := []tea.Cmd{a.tickCmd()}
		if a.mode != modeHome && !a.loading && a.filterBar.mode == feed.ModePlain &&
			a.opts.Store != nil && a.opts.Store.NeedsRefresh(a.opts.RefreshInterval) {
			cmds = append(cmds, a.loadCmd(), a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) removeArticle(id article.ID) {
	kept := a.all[:0:0]
	for _, art := range a.all {
		if art.ID != id {
			kept = append(kept, art)
		}
	}
	a.all = kept
	a.applySearch()
}

func (a *App) reload() tea.Cmd {
	a.cursor = 0
	a.previewScroll = 0
	return tea.Batch(a.loadCmd(), a.spinner.Tick)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeHome:
		return a.handleHomeKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.articles)-1 {
			a.cursor++
			a.previewScroll = 0
			a.trackSelected()
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
			a.trackSelected()
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if sel := a.selected(); sel != nil {
			return a, a.openCmd(*sel)
		}
		return a, nil
	case "l", " ":
		sel := a.selected()
		if sel == nil {
			return a, nil
		}
		if a.userID() == "" {
			a.err = fmt.Errorf("liking: %w", remote.ErrAuth)
			return a, nil
		}
		return a, a.toggleCmd(sel.ID)
	case "m":
		a.filterBar.nextMode()
		return a, a.reload()
	case "1", "2", "3":
		if a.filterBar.setMode(int(msg.String()[0] - '1')) {
			return a, a.reload()
		}
		return a, nil
	case "c":
		if !a.filterBar.categoryApplies() {
			return a, nil
		}
		a.filterBar.nextCategory()
		return a, a.reload()
	case "f":
		if !a.filterBar.categoryApplies() {
			return a, nil
		}
		a.mode = modeFilter
		a.filterBar.filterMode = true
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "r":
		if !a.loading {
			return a, a.reload()
		}
		return a, nil
	case "h":
		a.mode = modeHome
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1", "2", "3", "enter":
		if msg.String() != "enter" {
			a.filterBar.setMode(int(msg.String()[0] - '1'))
		}
		a.mode = modeNormal
		return a, a.reload()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.applySearch()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	prev := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// Only re-filter on actual value changes, not cursor moves etc.
	if a.searchInput.Value() != prev {
		a.cursor = 0
		a.applySearch()
	}
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.categories)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		if a.filterBar.selectCurrent() {
			return a, a.reload()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  briefly")
	}

	if a.mode == modeHome {
		return a.withBottomBar(renderHomeScreen(a.width, a.height, a.userID()), "1 latest  2 for you  3 liked  q quit")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  h home  q quit")
	}

	// header, filter, message and status lines plus pane borders
	contentHeight := a.height - 4 - 3
	if contentHeight < 3 {
		contentHeight = 3
	}

	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1

	headerLeft := headerStyle.Render("briefly")
	user := "guest"
	if a.opts.Session.UserID != "" {
		user = a.opts.Session.UserID
		if a.opts.Session.IsAdmin() {
			user += " (admin)"
		}
	}
	headerRight := headerUserStyle.Render(user)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	filter := a.filterBar.render(a.width)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	var message string
	switch {
	case a.err != nil:
		message = errorStyle.Render(remote.Describe(a.err))
	case a.loading:
		message = messageStyle.Render(a.spinner.View() + " loading " + string(a.filterBar.mode) + "...")
	default:
		message = messageStyle.Render(a.view.Message)
	}

	innerListW := listWidth - 4
	listContent := renderList(a.articles, a.rowState(a.list), a.cursor, contentHeight, innerListW)

	listStyle := listPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	sel := a.selected()
	var link string
	var st rowState
	if sel != nil {
		link, _ = browser.ArticleURL(*sel, a.opts.Site)
		st = a.rowState(a.preview)(sel.ID)
	}
	innerPreviewW := previewWidth - 4
	previewContent := renderPreview(sel, st, link, innerPreviewW, contentHeight, a.previewScroll)

	previewStyle := previewPaneStyle
	if a.focus == focusPreview {
		previewStyle = previewPaneActiveStyle
	}
	previewPane := previewStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(statusInfo{
		count:      len(a.articles),
		likes:      a.list.Likes().Len(),
		view:       a.view,
		signedIn:   a.userID() != "",
		searching:  a.mode == modeSearch,
		filtering:  a.mode == modeFilter,
		refreshing: a.loading,
	}, a.width)

	return lipgloss.JoinVertical(lipgloss.Left, header, filter, message, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("briefly")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Navigate article list\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Actions") + "\n" +
		"  l, space      Like or unlike the article\n" +
		"  o, enter      Open article in browser\n" +
		"  r             Reload the current view\n" +
		"  /             Search titles\n\n" +
		dim.Render("Views") + "\n" +
		"  m, 1-3        Latest, for you, liked\n" +
		"  c             Next category\n" +
		"  f             Pick a category\n\n" +
		dim.Render("General") + "\n" +
		"  h             Go to home screen\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application and listens on the bus's relays until it
// exits.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if opts.Bus != nil && opts.Relayed {
		go func() {
			err := opts.Bus.Run(ctx)
			if ctx.Err() == nil {
				if err == nil {
					err = fmt.Errorf("relays stopped")
				}
				p.Send(relayDownMsg{err: err})
			}
		}()
	}
	_, err := p.Run()
	return err
}
