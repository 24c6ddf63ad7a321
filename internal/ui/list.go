package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/query"
)

// ViewState is the one thing the list shows, in priority order.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewError
	ViewEmpty
	ViewPopulated
)

var (
	toggleKey  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey  = key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	focusKey   = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "form"))
)

// List renders the cached todo collection.
type List struct {
	ctx    context.Context
	logger *log.Logger
	store  Store
	cache  TodoCache

	states <-chan query.State[[]model.Todo]
	cancel func()
	state  query.State[[]model.Todo]

	items []*Item
	byID  map[string]*Item

	list     list.Model
	spinner  spinner.Model
	spinning bool
	banner   Banner
	focused  bool
}

// NewList builds a list that reads TodosKey from cache and writes
// through store.
func NewList(ctx context.Context, store Store, cache TodoCache, logger *log.Logger, bannerTTL time.Duration) *List {
	l := &List{
		ctx:    ctx,
		logger: logger,
		store:  store,
		cache:  cache,
		byID:   map[string]*Item{},
		banner: NewBanner("list", bannerTTL),
	}

	l.list = list.New(nil, itemDelegate{}, 80, 16)
	l.list.SetShowTitle(false)
	l.list.SetShowHelp(true)
	l.list.SetShowPagination(true)
	l.list.SetShowStatusBar(true)
	l.list.SetFilteringEnabled(true)
	l.list.SetStatusBarItemName("todo", "todos")
	l.list.DisableQuitKeybindings()
	l.list.FilterInput.Prompt = "/ "
	l.list.Styles.HelpStyle = Current().Help
	l.list.Styles.PaginationStyle = Current().Help
	extra := func() []key.Binding { return []key.Binding{toggleKey, deleteKey, refreshKey, focusKey} }
	l.list.AdditionalShortHelpKeys = extra
	l.list.AdditionalFullHelpKeys = extra

	l.spinner = spinner.New()
	l.spinner.Spinner = spinner.Dot
	l.spinner.Style = Current().Accent
	return l
}

// Init subscribes to the cache, which triggers the first fetch.
func (l *List) Init() tea.Cmd {
	l.states, l.cancel = l.cache.Subscribe(TodosKey)
	l.spinning = true
	return tea.Batch(l.waitForState(), l.spinner.Tick)
}

// Close drops the cache subscription.
func (l *List) Close() {
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *List) waitForState() tea.Cmd {
	ch := l.states
	return func() tea.Msg {
		s, ok := <-ch
		return stateMsg{state: s, ok: ok}
	}
}

// Focus and Blur route keys to the list.
func (l *List) Focus() { l.focused = true }
func (l *List) Blur()  { l.focused = false }

// SetSize resizes the populated view.
func (l *List) SetSize(w, h int) {
	if h < 4 {
		h = 4
	}
	l.list.SetSize(w, h)
}

// Filtering reports whether the filter prompt owns the keyboard or a
// filter is applied.
func (l *List) Filtering() bool { return l.list.FilterState() != list.Unfiltered }

// ViewState picks loading > error > empty > populated.
func (l *List) ViewState() ViewState {
	switch {
	case l.state.Status == query.StatusLoading:
		return ViewLoading
	case l.state.Status == query.StatusError:
		return ViewError
	case len(l.items) == 0:
		return ViewEmpty
	}
	return ViewPopulated
}

// Items returns the rendered items in server order.
func (l *List) Items() []*Item { return l.items }

// Banner returns the list's transient banner.
func (l *List) Banner() Banner { return l.banner }

// Stats counts completed and pending todos in the last good state.
func (l *List) Stats() (done, pending, total int) {
	if l.state.Status != query.StatusSuccess {
		return 0, 0, 0
	}
	done, pending = model.Stats(l.state.Data)
	return done, pending, len(l.state.Data)
}

// apply swaps in a new cache state. Items are matched by id so their
// mutation state and the selection survive the refetch.
func (l *List) apply(s query.State[[]model.Todo]) tea.Cmd {
	l.state = s
	if s.Status != query.StatusSuccess {
		l.items = nil
		l.byID = map[string]*Item{}
		l.list.SetItems(nil)
		return nil
	}

	selected := ""
	if it, ok := l.list.SelectedItem().(*Item); ok {
		selected = it.todo.ID
	}

	hooks := itemHooks{settled: l.settled, failed: l.failed}
	next := make(map[string]*Item, len(s.Data))
	items := make([]*Item, 0, len(s.Data))
	listItems := make([]list.Item, 0, len(s.Data))
	for _, t := range s.Data {
		it, ok := l.byID[t.ID]
		if ok {
			it.todo = t
		} else {
			it = newItem(l.ctx, t, l.store, hooks)
		}
		next[t.ID] = it
		items = append(items, it)
		listItems = append(listItems, it)
	}
	l.byID, l.items = next, items
	cmd := l.list.SetItems(listItems)

	for i, it := range items {
		if it.todo.ID == selected {
			l.list.Select(i)
			break
		}
	}
	return cmd
}

func (l *List) settled() { l.cache.Invalidate(TodosKey) }

func (l *List) failed(userMsg string, err error) {
	l.logger.Error("mutation failed", "err", err)
	l.banner.Set(BannerError, userMsg)
}

func (l *List) selected() *Item {
	it, _ := l.list.SelectedItem().(*Item)
	return it
}

// Update handles cache states, settled mutations and keys while focused.
func (l *List) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case stateMsg:
		if !msg.ok {
			return nil
		}
		cmds := []tea.Cmd{l.apply(msg.state), l.waitForState()}
		if (msg.state.Fetching || msg.state.Status == query.StatusLoading) && !l.spinning {
			l.spinning = true
			cmds = append(cmds, l.spinner.Tick)
		}
		return tea.Batch(cmds...)

	case toggleSettledMsg:
		msg.item.toggle.Settle(msg.res)
		return l.banner.Schedule()

	case deleteSettledMsg:
		msg.item.remove.Settle(msg.res)
		return l.banner.Schedule()

	case bannerExpiredMsg:
		l.banner.Expire(msg)
		return nil

	case spinner.TickMsg:
		if !l.state.Fetching && l.state.Status != query.StatusLoading {
			l.spinning = false
			return nil
		}
		var cmd tea.Cmd
		l.spinner, cmd = l.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if !l.focused {
			return nil
		}
		if l.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, toggleKey):
			if it := l.selected(); it != nil {
				l.banner.Clear()
				return it.Toggle()
			}
			return nil
		case key.Matches(msg, deleteKey):
			if it := l.selected(); it != nil {
				l.banner.Clear()
				return it.Delete()
			}
			return nil
		case key.Matches(msg, refreshKey):
			l.cache.Invalidate(TodosKey)
			return nil
		}
	}

	var cmd tea.Cmd
	l.list, cmd = l.list.Update(msg)
	return cmd
}

// View renders exactly one of the four list states.
func (l *List) View() string {
	t := Current()
	var body string
	switch l.ViewState() {
	case ViewLoading:
		body = l.spinner.View() + " " + t.Muted.Render(msgLoading)
	case ViewError:
		body = Current().BannerErr.Render(msgFetchFailed)
	case ViewEmpty:
		body = t.Muted.Render(msgEmpty)
	case ViewPopulated:
		body = l.list.View()
	}

	var top []string
	if l.state.Fetching && l.state.Status != query.StatusLoading {
		top = append(top, l.spinner.View()+" "+t.Muted.Render("refreshing"))
	}
	if l.banner.Visible() {
		top = append(top, l.banner.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(top, body)...)
}
