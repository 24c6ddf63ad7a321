package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/mutation"
)

// Item is one rendered todo. It owns the toggle and delete mutations and
// survives refetches as long as its id is still listed.
type Item struct {
	ctx    context.Context
	todo   model.Todo
	toggle *mutation.Mutation[bool, model.Todo]
	remove *mutation.Mutation[string, bool]
}

// itemHooks are the side effects shared by every item of a list.
type itemHooks struct {
	settled func()
	failed  func(userMsg string, err error)
}

func newItem(ctx context.Context, t model.Todo, store Store, hooks itemHooks) *Item {
	it := &Item{ctx: ctx, todo: t}
	id := t.ID
	it.toggle = mutation.New(func(ctx context.Context, done bool) (model.Todo, error) {
		return store.Update(ctx, id, model.SetCompleted(done))
	}, mutation.Options[bool, model.Todo]{
		OnSuccess: func(model.Todo, bool) { hooks.settled() },
		OnError:   func(err error, _ bool) { hooks.failed(msgUpdateFailed, err) },
	})
	it.remove = mutation.New(store.Delete, mutation.Options[string, bool]{
		OnSuccess: func(bool, string) { hooks.settled() },
		OnError:   func(err error, _ string) { hooks.failed(msgDeleteFailed, err) },
	})
	return it
}

// FilterValue implements list.Item.
func (it *Item) FilterValue() string { return it.todo.Title + " " + it.todo.Description }

// Todo returns the last known server state of the item.
func (it *Item) Todo() model.Todo { return it.todo }

// Toggle sends the inverted completed flag. The checkbox only changes
// once the refetched list says so.
func (it *Item) Toggle() tea.Cmd {
	if it.toggle.IsPending() {
		return nil
	}
	work := it.toggle.Begin(!it.todo.Completed)
	ctx := it.ctx
	return func() tea.Msg {
		return toggleSettledMsg{item: it, res: work(ctx)}
	}
}

// Delete removes the item. The control stays disabled while pending.
func (it *Item) Delete() tea.Cmd {
	if it.DeleteDisabled() {
		return nil
	}
	work := it.remove.Begin(it.todo.ID)
	ctx := it.ctx
	return func() tea.Msg {
		return deleteSettledMsg{item: it, res: work(ctx)}
	}
}

// DeleteDisabled reports whether the delete control is inactive.
func (it *Item) DeleteDisabled() bool { return it.remove.IsPending() }

// DeleteLabel is the text of the delete control.
func (it *Item) DeleteLabel() string {
	if it.remove.IsPending() {
		return "..."
	}
	return "Delete"
}

func titleStyle(t model.Todo) lipgloss.Style {
	if t.Completed {
		return Current().Done
	}
	return lipgloss.NewStyle()
}

func (it *Item) render(selected bool, width int) string {
	t := Current()

	box := t.Muted.Render(t.BoxUnchecked)
	if it.todo.Completed {
		box = t.Success.Render(t.BoxChecked)
	}
	if it.toggle.IsPending() {
		box = t.Busy.Render("…")
	}

	del := "[" + it.DeleteLabel() + "]"
	if it.DeleteDisabled() {
		del = t.Busy.Render(del)
	} else {
		del = t.Error.Render(del)
	}

	prefix := "  "
	if selected {
		prefix = t.Selected.Render(">") + " "
	}

	title := titleStyle(it.todo).Render(truncate(it.todo.Title, width-16))
	head := prefix + box + " " + title
	gap := width - lipgloss.Width(head) - lipgloss.Width(del)
	if gap < 1 {
		gap = 1
	}
	line := head + strings.Repeat(" ", gap) + del

	desc := ""
	if it.todo.Description != "" {
		style := t.Muted
		if it.todo.Completed {
			style = t.Done
		}
		desc = "    " + style.Render(truncate(it.todo.Description, width-6))
	}
	return line + "\n" + desc
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// itemDelegate draws items as two lines: title row and description.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(*Item)
	if !ok {
		return
	}
	fmt.Fprint(w, it.render(index == m.Index(), m.Width()))
}
