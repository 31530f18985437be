package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/mmcdole/rebootv/internal/notify"
	"github.com/mmcdole/rebootv/internal/store"
	"github.com/mmcdole/rebootv/internal/tui/styles"
)

// browseViews are the tabs, in tab order
var browseViews = []domain.View{
	domain.ViewLiveTV,
	domain.ViewFavorites,
	domain.ViewRecentlyWatched,
	domain.ViewMovies,
	domain.ViewSeries,
}

var viewTitles = map[domain.View]string{
	domain.ViewLiveTV:          "Live TV",
	domain.ViewFavorites:       "Favorites",
	domain.ViewRecentlyWatched: "Recent",
	domain.ViewMovies:          "Movies",
	domain.ViewSeries:          "Series",
}

// Vertical chrome: tabs + blank, status + help
const chromeHeight = 4

// maxToasts is the number of notifications shown at once
const maxToasts = 3

var markColumn = lipgloss.NewStyle().Width(3)

// row is one rendered list entry
type row struct {
	title   string
	marks   string
	detail  string
	channel *domain.Channel
	vod     *domain.VODItem
}

// Model is the main Bubble Tea model for the application
type Model struct {
	ctx         context.Context
	store       *store.Store
	notes       *notify.Center
	observer    *ChannelObserver
	defaultView domain.View

	spinner   spinner.Model
	search    textinput.Model
	searching bool

	cursor int
	width  int
	height int
}

// NewModel creates a new application model. observer must already be
// attached to s and notes.
func NewModel(ctx context.Context, s *store.Store, notes *notify.Center, observer *ChannelObserver, defaultView domain.View) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{Frames: styles.SpinnerFrames, FPS: 80 * time.Millisecond}
	sp.Style = styles.AccentStyle

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search"
	ti.CharLimit = 64

	return Model{
		ctx:         ctx,
		store:       s,
		notes:       notes,
		observer:    observer,
		defaultView: defaultView,
		spinner:     sp,
		search:      ti,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.observer.Wait(),
		InitCmd(m.ctx, m.store, m.defaultView),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.Width = max(10, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateChangedMsg:
		m.clampCursor()
		return m, m.observer.Wait()

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.cursor = 0
		return m, SearchCmd(m.ctx, m.store, strings.TrimSpace(m.search.Value()))
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kind, browsing := m.store.CurrentView().Get().Kind()
	rows := m.rows()

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case m.store.Initializing().Get():
		// everything else waits for the first refresh
		return m, nil

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1, len(rows))
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1, len(rows))
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-len(rows), len(rows))
	case key.Matches(msg, Keys.End):
		m.moveCursor(len(rows), len(rows))

	case key.Matches(msg, Keys.NextView):
		return m.switchView(1)
	case key.Matches(msg, Keys.PrevView):
		return m.switchView(-1)

	case key.Matches(msg, Keys.Search):
		m.searching = true
		m.search.SetValue(m.store.SearchTerm().Get())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, Keys.Escape):
		if m.store.SearchTerm().Get() != "" {
			m.search.SetValue("")
			m.cursor = 0
			return m, SearchCmd(m.ctx, m.store, "")
		}
	case key.Matches(msg, Keys.RefreshAll):
		return m, RefreshAllCmd(m.ctx, m.store)
	}

	if !browsing {
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Sort):
		m.cursor = 0
		return m, CycleSortCmd(m.ctx, m.store, kind)
	case key.Matches(msg, Keys.LoadMore):
		return m, LoadMoreCmd(m.ctx, m.store, kind)
	case key.Matches(msg, Keys.Retry):
		return m, RetryCmd(m.ctx, m.store, kind)
	case key.Matches(msg, Keys.ShowHidden) && isChannelKind(kind):
		m.cursor = 0
		return m, ToggleShowHiddenCmd(m.ctx, m.store)
	case key.Matches(msg, Keys.Filter) && !isChannelKind(kind):
		m.cursor = 0
		return m, CycleVODFilterCmd(m.ctx, m.store)
	}

	if m.cursor >= len(rows) {
		return m, nil
	}
	r := rows[m.cursor]

	switch {
	case key.Matches(msg, Keys.Enter) && r.channel != nil:
		return m, WatchChannelCmd(m.ctx, m.store, *r.channel)
	case key.Matches(msg, Keys.Enter) && r.vod != nil:
		return m, SelectVODCmd(m.ctx, m.store, *r.vod)
	case key.Matches(msg, Keys.Favorite) && r.channel != nil:
		return m, ToggleChannelCmd(m.ctx, m.store, r.channel.ID, domain.FlagFavorite)
	case key.Matches(msg, Keys.Hide) && r.channel != nil:
		return m, ToggleChannelCmd(m.ctx, m.store, r.channel.ID, domain.FlagHidden)
	case key.Matches(msg, Keys.Favorite) && r.vod != nil:
		return m, ToggleVODCmd(m.ctx, m.store, *r.vod, domain.FlagFavorite)
	case key.Matches(msg, Keys.Watchlist) && r.vod != nil:
		return m, ToggleVODCmd(m.ctx, m.store, *r.vod, domain.FlagWatchlist)
	}
	return m, nil
}

func (m Model) switchView(step int) (tea.Model, tea.Cmd) {
	current := m.store.CurrentView().Get()
	i := 0
	for j, v := range browseViews {
		if v == current {
			i = j
			break
		}
	}
	next := browseViews[(i+step+len(browseViews))%len(browseViews)]
	m.cursor = 0
	return m, NavigateCmd(m.ctx, m.store, next)
}

func (m *Model) moveCursor(delta, n int) {
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
}

func (m *Model) clampCursor() {
	m.moveCursor(0, len(m.rows()))
}

func isChannelKind(kind domain.CollectionKind) bool {
	switch kind {
	case domain.KindChannels, domain.KindFavoriteChannels, domain.KindRecentChannels:
		return true
	default:
		return false
	}
}

// page returns the items and totals of the collection kind renders
func (m Model) page(kind domain.CollectionKind) (rows []row, hasMore bool, total int) {
	now := time.Now()
	switch kind {
	case domain.KindChannels, domain.KindFavoriteChannels, domain.KindRecentChannels:
		var p domain.Page[domain.Channel]
		switch kind {
		case domain.KindFavoriteChannels:
			p = m.store.FavoriteChannels().Get()
		case domain.KindRecentChannels:
			p = m.store.RecentChannels().Get()
		default:
			p = m.store.Channels().Get()
		}
		for _, ch := range p.Items {
			r := row{title: ch.Name, detail: ch.Category, channel: &ch}
			if ch.IsFavorite {
				r.marks += styles.FavoriteMark
			}
			if ch.IsHidden {
				r.marks += styles.HiddenMark
			}
			if e, ok := ch.NowPlaying(now); ok {
				r.detail = fmt.Sprintf("%s · now: %s", ch.Category, e.Title)
			}
			rows = append(rows, r)
		}
		return rows, p.HasMore, p.Total

	case domain.KindMovies, domain.KindSeries:
		p := m.store.Movies().Get()
		if kind == domain.KindSeries {
			p = m.store.Series().Get()
		}
		for _, item := range p.Items {
			r := row{title: item.Title, detail: strings.Join(item.Genres, ", "), vod: &item}
			if item.IsFavorite {
				r.marks += styles.FavoriteMark
			}
			if item.IsOnWatchlist {
				r.marks += styles.WatchlistMark
			}
			if prog, ok := m.store.VODItemProgress(item.ID, item.Type); ok {
				if prog.Finished {
					r.marks += styles.FinishedMark
				} else {
					r.detail += fmt.Sprintf(" · %.0f%%", prog.Percent)
				}
			}
			if item.Duration > 0 {
				r.detail += " · " + item.FormattedDuration()
			}
			rows = append(rows, r)
		}
		return rows, p.HasMore, p.Total
	}
	return nil, false, 0
}

func (m Model) rows() []row {
	kind, ok := m.store.CurrentView().Get().Kind()
	if !ok {
		return nil
	}
	rows, _, _ := m.page(kind)
	return rows
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	toasts := m.renderToasts()
	bodyHeight := m.height - chromeHeight
	if toasts != "" {
		bodyHeight -= lipgloss.Height(toasts)
	}
	bodyHeight = max(1, bodyHeight)

	if m.store.Initializing().Get() {
		body := fmt.Sprintf("%s Loading playlists...", m.spinner.View())
		b.WriteString(lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body))
	} else {
		b.WriteString(m.renderBody(bodyHeight))
	}

	b.WriteString("\n")
	if toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderTabs() string {
	current := m.store.CurrentView().Get()
	tabs := make([]string, 0, len(browseViews))
	for _, v := range browseViews {
		style := styles.TabStyle
		if v == current {
			style = styles.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(viewTitles[v]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderBody(height int) string {
	kind, ok := m.store.CurrentView().Get().Kind()
	if !ok {
		return ""
	}
	rows, hasMore, _ := m.page(kind)

	if errMsg := m.store.Error(kind).Get(); errMsg != "" && len(rows) == 0 {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render(errMsg)+"\n"+styles.DimStyle.Render("press r to retry"))
	}
	if len(rows) == 0 {
		text := "Nothing here yet."
		if m.store.Loading(kind).Get() {
			text = m.spinner.View() + " Loading..."
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.DimStyle.Render(text))
	}

	// keep the cursor in view
	offset := max(0, m.cursor-height+1)

	titles := make([]string, len(rows))
	for i, r := range rows {
		titles[i] = r.title
	}
	matched := matchIndexes(m.store.SearchTerm().Get(), titles)

	lines := make([]string, 0, height)
	end := min(len(rows), offset+height)
	for i := offset; i < end; i++ {
		r := rows[i]
		line := markColumn.Render(r.marks) + highlight(r.title, matched[i]) + "  " + styles.DimStyle.Render(r.detail)
		style := styles.NormalItemStyle
		if i == m.cursor {
			style = styles.SelectedItemStyle
		}
		lines = append(lines, style.Width(m.width).Render(line))
	}
	if end == len(rows) && hasMore && len(lines) < height {
		lines = append(lines, styles.DimStyle.Render("  press n to load more"))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderToasts() string {
	notes := m.notes.Notifications()
	if len(notes) == 0 {
		return ""
	}
	notes = notes[max(0, len(notes)-maxToasts):]

	rendered := make([]string, 0, len(notes))
	for _, n := range notes {
		style := styles.InfoStyle
		switch n.Level {
		case domain.LevelSuccess:
			style = styles.SuccessStyle
		case domain.LevelError:
			style = styles.ErrorStyle
		}
		rendered = append(rendered, styles.ToastStyle.Render(style.Render(n.Message)))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

func (m Model) renderStatus() string {
	if m.searching {
		return m.search.View()
	}

	kind, ok := m.store.CurrentView().Get().Kind()
	if !ok {
		return ""
	}
	rows, _, total := m.page(kind)

	parts := []string{fmt.Sprintf("%d of %d", len(rows), total)}
	opts := m.store.OptionsFor(kind)
	if opts.SortOrder != "" && opts.SortBy != domain.SortByNone {
		parts = append(parts, "sort "+string(opts.SortOrder))
	}
	if !isChannelKind(kind) {
		parts = append(parts, "filter "+opts.Filter.String())
	}
	if opts.ShowHidden {
		parts = append(parts, "hidden")
	}
	if term := m.store.SearchTerm().Get(); term != "" {
		parts = append(parts, fmt.Sprintf("search %q", term))
	}
	if m.store.Loading(kind).Get() {
		parts = append(parts, m.spinner.View())
	}
	if sel := m.selection(); sel != "" {
		parts = append(parts, sel)
	}
	return styles.StatusBarStyle.Width(m.width).Render(strings.Join(parts, " · "))
}

// selection describes the selected channel or VOD item
func (m Model) selection() string {
	if ch := m.store.SelectedChannel().Get(); ch != nil {
		return "watching " + ch.Name
	}
	if series := m.store.SelectedSeries().Get(); series != nil {
		if m.store.SeasonsLoading().Get() {
			return series.Title + " (loading seasons)"
		}
		return fmt.Sprintf("%s (%d seasons)", series.Title, len(m.store.Seasons().Get()))
	}
	if item := m.store.SelectedVODItem().Get(); item != nil {
		return item.Title
	}
	return ""
}

func (m Model) renderHelp() string {
	bindings := Keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, styles.AccentStyle.Render(h.Key)+" "+styles.DimStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
