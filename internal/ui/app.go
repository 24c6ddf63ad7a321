// Package ui renders the todo client: a form to add items and a list to
// view, toggle and delete them, over a cached remote store.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/query"
)

type focusArea int

const (
	focusForm focusArea = iota
	focusList
)

// Deps are the collaborators of the App.
type Deps struct {
	Store     Store
	Cache     TodoCache
	Logger    *log.Logger
	BannerTTL time.Duration
}

// App is the page shell: header, form, list.
type App struct {
	form   *Form
	list   *List
	focus  focusArea
	width  int
	height int
}

// NewApp wires the form and list to deps.
func NewApp(ctx context.Context, deps Deps) *App {
	return &App{
		form: NewForm(ctx, deps.Store, deps.Cache, deps.Logger, deps.BannerTTL),
		list: NewList(ctx, deps.Store, deps.Cache, deps.Logger, deps.BannerTTL),
	}
}

// Run starts the interactive client and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, store Store, logger *log.Logger, bannerTTL time.Duration) error {
	cache := query.New[[]model.Todo](ctx, query.WithLogger(logger))
	cache.Register(TodosKey, store.List)

	app := NewApp(ctx, Deps{Store: store, Cache: cache, Logger: logger, BannerTTL: bannerTTL})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Close releases the cache subscription.
func (a *App) Close() { a.list.Close() }

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.form.Focus(), a.list.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "tab":
			if !(a.focus == focusList && a.list.Filtering()) {
				return a, a.cycleFocus()
			}
		}
		if a.focus == focusList {
			switch msg.String() {
			case "q", "esc":
				if !a.list.Filtering() {
					return a, tea.Quit
				}
			}
			return a, a.list.Update(msg)
		}
		return a, a.form.Update(msg)
	}

	return a, tea.Batch(a.form.Update(msg), a.list.Update(msg))
}

func (a *App) cycleFocus() tea.Cmd {
	if a.focus == focusList {
		a.list.Blur()
		a.focus = focusForm
		return a.form.Focus()
	}
	stay, cmd := a.form.NextField()
	if stay {
		return cmd
	}
	a.focus = focusList
	a.list.Focus()
	return nil
}

func (a *App) layout() {
	inner := a.width - 4
	if inner < 20 {
		inner = 20
	}
	a.form.SetWidth(inner)
	used := lipgloss.Height(a.header()) + lipgloss.Height(a.form.View()) + 4
	a.list.SetSize(inner, a.height-used)
}

func (a *App) header() string {
	t := Current()
	done, pending, total := a.list.Stats()
	counts := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), pending,
		t.Accent.Render("Total"), total,
	)
	return counts + "\n" + t.Muted.Render(ProgressBar(done, total, 28))
}

func (a *App) View() string {
	return PanelString([]string{
		a.header(),
		"",
		a.form.View(),
		"",
		a.list.View(),
	})
}
