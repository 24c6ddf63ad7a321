package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/mutation"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
)

var submitKey = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "add"))

// Form is the draft editor for new todos.
type Form struct {
	ctx    context.Context
	logger *log.Logger
	cache  Invalidator
	create *mutation.Mutation[model.NewTodo, model.Todo]

	title   textinput.Model
	desc    textarea.Model
	field   formField
	focused bool
	banner  Banner
}

// NewForm builds a form that creates todos in store and invalidates
// TodosKey in cache after each successful create.
func NewForm(ctx context.Context, store Store, cache Invalidator, logger *log.Logger, bannerTTL time.Duration) *Form {
	f := &Form{
		ctx:    ctx,
		logger: logger,
		cache:  cache,
		banner: NewBanner("form", bannerTTL),
	}

	f.title = textinput.New()
	f.title.Prompt = "> "
	f.title.Placeholder = "Enter todo title..."
	f.title.CharLimit = 200

	f.desc = textarea.New()
	f.desc.Placeholder = "Enter todo description (optional)..."
	f.desc.ShowLineNumbers = false
	f.desc.SetHeight(3)
	f.desc.CharLimit = 1000

	f.create = mutation.New(store.Create, mutation.Options[model.NewTodo, model.Todo]{
		OnSuccess: func(t model.Todo, _ model.NewTodo) {
			f.cache.Invalidate(TodosKey)
			f.title.Reset()
			f.desc.Reset()
			f.banner.Set(BannerSuccess, msgCreated)
			f.logger.Debug("todo created", "id", t.ID)
		},
		OnError: func(err error, _ model.NewTodo) {
			f.logger.Error("create failed", "err", err)
			f.banner.Set(BannerError, msgCreateFailed)
		},
	})
	return f
}

// Focus puts the cursor in the title field.
func (f *Form) Focus() tea.Cmd {
	f.focused = true
	f.field = fieldTitle
	f.desc.Blur()
	return f.title.Focus()
}

// Blur removes focus from both fields.
func (f *Form) Blur() {
	f.focused = false
	f.title.Blur()
	f.desc.Blur()
}

// NextField moves from title to description. It reports false when
// focus should leave the form.
func (f *Form) NextField() (bool, tea.Cmd) {
	if f.field == fieldTitle {
		f.field = fieldDescription
		f.title.Blur()
		return true, f.desc.Focus()
	}
	f.Blur()
	return false, nil
}

// SetWidth sizes both inputs.
func (f *Form) SetWidth(w int) {
	if w < 10 {
		w = 10
	}
	f.title.Width = w - len(f.title.Prompt) - 1
	f.desc.SetWidth(w)
}

// Pending reports whether a create is in flight.
func (f *Form) Pending() bool { return f.create.IsPending() }

// Banner returns the form's transient banner.
func (f *Form) Banner() Banner { return f.banner }

// Draft returns the current field values.
func (f *Form) Draft() (title, description string) {
	return f.title.Value(), f.desc.Value()
}

// Submit validates the draft and dispatches the create. Empty titles are
// rejected without a network call.
func (f *Form) Submit() tea.Cmd {
	if f.create.IsPending() {
		return nil
	}
	f.banner.Clear()
	title := strings.TrimSpace(f.title.Value())
	if title == "" {
		f.banner.Set(BannerError, msgTitleRequired)
		return f.banner.Schedule()
	}
	work := f.create.Begin(model.NewTodo{
		Title:       title,
		Description: strings.TrimSpace(f.desc.Value()),
	})
	ctx := f.ctx
	return func() tea.Msg {
		return createSettledMsg{res: work(ctx)}
	}
}

// Update handles keys while focused and the form's own messages.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case createSettledMsg:
		f.create.Settle(msg.res)
		return f.banner.Schedule()
	case bannerExpiredMsg:
		f.banner.Expire(msg)
		return nil
	case tea.KeyMsg:
		if !f.focused {
			return nil
		}
		if key.Matches(msg, submitKey) || (msg.Type == tea.KeyEnter && f.field == fieldTitle) {
			return f.Submit()
		}
		if f.create.IsPending() {
			return nil
		}
		f.banner.Clear()
	}

	var cmd tea.Cmd
	switch f.field {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.desc, cmd = f.desc.Update(msg)
	}
	return cmd
}

// View renders the fields, the banner and the submit control.
func (f *Form) View() string {
	t := Current()
	label := func(s string, on bool) string {
		if on && f.focused {
			return t.Accent.Render(s)
		}
		return t.Muted.Render(s)
	}

	button := "[ Add Todo ]"
	if f.create.IsPending() {
		button = t.Busy.Render("[ Adding... ]")
	} else if f.focused {
		button = t.Accent.Render(button) + t.Help.Render("  enter/ctrl+s")
	}

	lines := []string{
		label("Title", f.field == fieldTitle),
		f.title.View(),
		label("Description", f.field == fieldDescription),
		f.desc.View(),
	}
	if f.banner.Visible() {
		lines = append(lines, f.banner.View())
	}
	lines = append(lines, button)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
