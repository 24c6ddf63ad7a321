package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/store/remote"
	"github.com/idilsaglam/todoclient/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group     bool // list grouped by pending/done
	Store     ui.Store
	Logger    *log.Logger
	BannerTTL time.Duration
	Out       io.Writer
	Err       io.Writer

	// TUI runs the interactive client. Defaults to ui.Run.
	TUI func(ctx context.Context, store ui.Store, logger *log.Logger, bannerTTL time.Duration) error
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.TUI == nil {
		o.TUI = ui.Run
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
// No subcommand starts the interactive client.
func Run(ctx context.Context, args []string, opt Options) int {
	opt.defaults()
	if len(args) == 0 {
		return doTUI(ctx, opt)
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Out)
		return 0

	case "tui":
		return doTUI(ctx, opt)

	case "ls":
		return doList(ctx, opt)

	case "add":
		return doAdd(ctx, a, opt)

	case "done":
		if len(a) != 1 {
			ui.Fail(opt.Err, "usage: todo done <index|id>")
			return 2
		}
		return doToggle(ctx, a[0], opt)

	case "rm":
		if len(a) != 1 {
			ui.Fail(opt.Err, "usage: todo rm <index|id>")
			return 2
		}
		return doRemove(ctx, a[0], opt)
	}

	ui.Fail(opt.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a terminal client for a todo API

Usage:
  todo [flags] [subcommand] [args]

Subcommands:
  (none), tui               Open the interactive client
  add [-d desc] <title...>  Add a new item (title can be multiple words)
  ls                        List items
  done <index|id>           Toggle done for an item (1-based index or id)
  rm <index|id>             Remove an item (1-based index or id)

Flags:
  -api URL          API base URL (default http://127.0.0.1:8000)
  -group            Group ls output by pending/done
  -theme NAME       classic, neon or mono
  -timeout D        Per-request timeout
  -log-file PATH    Log destination, - for stderr

Examples:
  todo add -d "2 litres" Buy milk
  todo ls
  todo done 2
  todo rm 3
`)
}

// -------------- subcommand impls ----------------

func doTUI(ctx context.Context, opt Options) int {
	if err := opt.TUI(ctx, opt.Store, opt.Logger, opt.BannerTTL); err != nil {
		opt.Logger.Error("tui exited", "err", err)
		ui.Fail(opt.Err, err.Error())
		return 1
	}
	return 0
}

func doList(ctx context.Context, opt Options) int {
	items, err := opt.Store.List(ctx)
	if err != nil {
		return failRemote(opt, "load", err)
	}

	t := ui.Current()
	d, p := model.Stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(items),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, t.Muted.Render(ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if opt.Group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items, nil)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(opt.Out, lines)
	return 0
}

func doAdd(ctx context.Context, args []string, opt Options) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(opt.Err)
	desc := fs.String("d", "", "description")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		ui.Fail(opt.Err, "usage: todo add [-d desc] <title...>")
		return 2
	}
	created, err := opt.Store.Create(ctx, model.NewTodo{
		Title:       title,
		Description: strings.TrimSpace(*desc),
	})
	if err != nil {
		return failRemote(opt, "add", err)
	}
	ui.OK(opt.Out, "added "+created.ID)
	return 0
}

func doToggle(ctx context.Context, ref string, opt Options) int {
	target, code := resolve(ctx, ref, opt)
	if code != 0 {
		return code
	}
	updated, err := opt.Store.Update(ctx, target.ID, model.SetCompleted(!target.Completed))
	if err != nil {
		return failRemote(opt, "toggle", err)
	}
	if updated.Completed {
		ui.OK(opt.Out, "done: "+updated.Title)
	} else {
		ui.OK(opt.Out, "pending: "+updated.Title)
	}
	return 0
}

func doRemove(ctx context.Context, ref string, opt Options) int {
	target, code := resolve(ctx, ref, opt)
	if code != 0 {
		return code
	}
	if _, err := opt.Store.Delete(ctx, target.ID); err != nil {
		return failRemote(opt, "remove", err)
	}
	ui.OK(opt.Out, "removed: "+target.Title)
	return 0
}

// resolve finds a todo by 1-based index in list order, falling back to id.
func resolve(ctx context.Context, ref string, opt Options) (model.Todo, int) {
	items, err := opt.Store.List(ctx)
	if err != nil {
		return model.Todo{}, failRemote(opt, "load", err)
	}
	n, nerr := strconv.Atoi(ref)
	if nerr == nil && n >= 1 && n <= len(items) {
		return items[n-1], 0
	}
	for _, it := range items {
		if it.ID == ref {
			return it, 0
		}
	}
	if nerr != nil {
		ui.Fail(opt.Err, "no todo with id "+ref)
		return model.Todo{}, 2
	}
	ui.Fail(opt.Err, fmt.Sprintf("index out of range: have %d, got %d", len(items), n))
	fmt.Fprintln(opt.Err, ui.Current().Muted.Render("Hint: run `todo ls` to see valid indexes"))
	return model.Todo{}, 2
}

// failRemote reports a store error. Status codes are shown when the
// server answered.
func failRemote(opt Options, what string, err error) int {
	opt.Logger.Error(what+" failed", "err", err)
	var rf *remote.RequestFailed
	if errors.As(err, &rf) && rf.StatusCode != 0 {
		ui.Fail(opt.Err, fmt.Sprintf("%s: server answered %d", what, rf.StatusCode))
		return 1
	}
	ui.Fail(opt.Err, what+": "+err.Error())
	return 1
}

// -------------- rendering helpers --------------

// flatLines numbers items from 1, or by their position in index when given.
func flatLines(items []model.Todo, index map[string]int) []string {
	t := ui.Current()
	if len(items) == 0 {
		return []string{t.Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		n := i + 1
		if index != nil {
			n = index[it.ID]
		}
		idx := fmt.Sprintf("%2d.", n)
		box := t.Muted.Render(t.BoxUnchecked)
		title := it.Title
		if r := []rune(title); len(r) > 80 {
			title = string(r[:77]) + "..."
		}
		if it.Completed {
			box = t.Success.Render(t.BoxChecked)
			title = t.Done.Render(title)
		}
		line := fmt.Sprintf("%s %s %s %s", t.Muted.Render(idx), box, title, t.Help.Render("#"+it.ID))
		out = append(out, line)
		if it.Description != "" {
			out = append(out, "       "+t.Muted.Render(it.Description))
		}
	}
	return out
}

func groupLines(items []model.Todo) []string {
	t := ui.Current()
	index := make(map[string]int, len(items))
	var pend, done []model.Todo
	for i, it := range items {
		index[it.ID] = i + 1
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend, index)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done, index)...)
	}
	return lines
}
