package ui

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/todoclient/internal/logging"
	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/query"
	"github.com/idilsaglam/todoclient/internal/store/remote"
	"github.com/idilsaglam/todoclient/internal/store/remote/remotetest"
)

// fakeCache records invalidations; tests push states by hand.
type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
	states      chan query.State[[]model.Todo]
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(chan query.State[[]model.Todo], 1)}
}

func (c *fakeCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
}

func (c *fakeCache) Subscribe(string) (<-chan query.State[[]model.Todo], func()) {
	return c.states, func() {}
}

func (c *fakeCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

func newStore(t *testing.T, seed ...model.Todo) (*remotetest.Server, *remote.Client) {
	t.Helper()
	srv := remotetest.New(t, seed...)
	c, err := remote.New(srv.URL)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	return srv, c
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func success(items ...model.Todo) stateMsg {
	if items == nil {
		items = []model.Todo{}
	}
	return stateMsg{ok: true, state: query.State[[]model.Todo]{Status: query.StatusSuccess, Data: items}}
}

// ---- form ----

func newTestForm(t *testing.T, seed ...model.Todo) (*Form, *fakeCache, *remotetest.Server) {
	t.Helper()
	srv, store := newStore(t, seed...)
	cache := newFakeCache()
	f := NewForm(context.Background(), store, cache, logging.Discard(), time.Hour)
	f.Focus()
	return f, cache, srv
}

func TestFormRejectsBlankTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t"} {
		f, cache, srv := newTestForm(t)
		f.title.SetValue(title)

		if cmd := f.Update(keyEnter); cmd == nil {
			t.Fatal("expected a banner expiry command")
		}
		if f.Pending() {
			t.Error("create dispatched for blank title")
		}
		if b := f.Banner(); b.Kind() != BannerError || b.Text() != msgTitleRequired {
			t.Errorf("banner: got %v %q", b.Kind(), b.Text())
		}
		if n := len(srv.Requests()); n != 0 {
			t.Errorf("requests: got %d, want 0", n)
		}
		if n := len(cache.invalidations()); n != 0 {
			t.Errorf("invalidations: got %d, want 0", n)
		}
	}
}

func TestFormCreateSuccess(t *testing.T) {
	f, cache, srv := newTestForm(t)
	f.title.SetValue("Buy milk")
	f.desc.SetValue("2 litres")

	cmd := f.Update(keyEnter)
	if cmd == nil || !f.Pending() {
		t.Fatal("expected create to be dispatched")
	}
	if again := f.Submit(); again != nil {
		t.Error("submit must be disabled while pending")
	}
	if !strings.Contains(f.View(), "Adding...") {
		t.Error("view should show the pending label")
	}

	f.Update(cmd())

	if title, desc := f.Draft(); title != "" || desc != "" {
		t.Errorf("draft not cleared: %q %q", title, desc)
	}
	if b := f.Banner(); b.Kind() != BannerSuccess || b.Text() != msgCreated {
		t.Errorf("banner: got %v %q", b.Kind(), b.Text())
	}
	if got := cache.invalidations(); len(got) != 1 || got[0] != TodosKey {
		t.Errorf("invalidations: got %v, want exactly one %q", got, TodosKey)
	}
	todos := srv.Todos()
	if len(todos) != 1 || todos[0].Title != "Buy milk" || todos[0].Description != "2 litres" || todos[0].Completed {
		t.Errorf("server state: got %+v", todos)
	}
	if f.Pending() {
		t.Error("still pending after settle")
	}
}

func TestFormCreateFailureKeepsDraft(t *testing.T) {
	f, cache, srv := newTestForm(t)
	srv.Fail("create", http.StatusInternalServerError)
	f.title.SetValue("Buy milk")
	f.desc.SetValue("2 litres")

	cmd := f.Submit()
	f.Update(cmd())

	if title, desc := f.Draft(); title != "Buy milk" || desc != "2 litres" {
		t.Errorf("draft changed: %q %q", title, desc)
	}
	if b := f.Banner(); b.Kind() != BannerError || b.Text() != msgCreateFailed {
		t.Errorf("banner: got %v %q", b.Kind(), b.Text())
	}
	if n := len(cache.invalidations()); n != 0 {
		t.Errorf("invalidations: got %d, want 0", n)
	}
}

func TestFormTypingClearsBanner(t *testing.T) {
	f, _, _ := newTestForm(t)
	f.Submit()
	if !f.Banner().Visible() {
		t.Fatal("expected validation banner")
	}
	f.Update(keyRunes("a"))
	if f.Banner().Visible() {
		t.Error("banner should clear on typing")
	}
	if title, _ := f.Draft(); title != "a" {
		t.Errorf("title: got %q, want a", title)
	}
}

func TestFormIgnoresTypingWhilePending(t *testing.T) {
	f, _, _ := newTestForm(t)
	f.title.SetValue("x")
	cmd := f.Submit()
	f.Update(keyRunes("y"))
	if title, _ := f.Draft(); title != "x" {
		t.Errorf("title changed while pending: %q", title)
	}
	f.Update(cmd())
}

func TestFormTabMovesToDescription(t *testing.T) {
	f, _, _ := newTestForm(t)
	stay, _ := f.NextField()
	if !stay || f.field != fieldDescription {
		t.Fatalf("NextField: stay=%v field=%v", stay, f.field)
	}
	// Enter in the description is a newline, not a submit.
	f.Update(keyEnter)
	if f.Pending() {
		t.Error("enter in description must not submit")
	}
	if stay, _ := f.NextField(); stay {
		t.Error("NextField from description should leave the form")
	}
}

// ---- banner ----

func TestBannerExpires(t *testing.T) {
	b := NewBanner("form", 5*time.Millisecond)
	b.Set(BannerSuccess, "saved")
	msg := b.Schedule()()
	if !b.Expire(msg.(bannerExpiredMsg)) || b.Visible() {
		t.Error("banner should expire")
	}
}

func TestBannerIgnoresSupersededTimer(t *testing.T) {
	b := NewBanner("form", time.Millisecond)
	b.Set(BannerError, "first")
	stale := b.Schedule()
	b.Set(BannerError, "second")
	if b.Expire(stale().(bannerExpiredMsg)) {
		t.Error("stale timer cleared a newer banner")
	}
	if b.Text() != "second" {
		t.Errorf("text: got %q", b.Text())
	}

	b.Clear()
	if b.Schedule() != nil {
		t.Error("hidden banner should not schedule")
	}
}

func TestBannerOwners(t *testing.T) {
	a := NewBanner("form", time.Millisecond)
	a.Set(BannerError, "x")
	msg := a.Schedule()().(bannerExpiredMsg)
	b := NewBanner("list", time.Millisecond)
	b.Set(BannerError, "y")
	if b.Expire(msg) {
		t.Error("expiry routed to the wrong banner")
	}
}

// ---- list ----

func newTestList(t *testing.T, seed ...model.Todo) (*List, *fakeCache, *remotetest.Server) {
	t.Helper()
	srv, store := newStore(t, seed...)
	cache := newFakeCache()
	l := NewList(context.Background(), store, cache, logging.Discard(), time.Hour)
	l.Focus()
	return l, cache, srv
}

func TestListStates(t *testing.T) {
	l, _, _ := newTestList(t)

	l.Update(stateMsg{ok: true, state: query.State[[]model.Todo]{Status: query.StatusLoading, Fetching: true}})
	if l.ViewState() != ViewLoading || !strings.Contains(l.View(), msgLoading) {
		t.Errorf("loading: got %v", l.ViewState())
	}

	l.Update(success())
	if l.ViewState() != ViewEmpty {
		t.Errorf("empty: got %v", l.ViewState())
	}
	if v := l.View(); !strings.Contains(v, msgEmpty) || strings.Contains(v, msgFetchFailed) {
		t.Errorf("empty view: %q", v)
	}

	l.Update(success(model.Todo{ID: "1", Title: "Buy milk"}))
	if l.ViewState() != ViewPopulated || !strings.Contains(l.View(), "Buy milk") {
		t.Errorf("populated: got %v", l.ViewState())
	}

	l.Update(stateMsg{ok: true, state: query.State[[]model.Todo]{Status: query.StatusError, Err: remote.ErrUnexpectedStatus}})
	if l.ViewState() != ViewError {
		t.Errorf("error: got %v", l.ViewState())
	}
	if v := l.View(); !strings.Contains(v, msgFetchFailed) || strings.Contains(v, "Buy milk") {
		t.Errorf("error view should not show stale items: %q", v)
	}
}

func TestListKeepsItemIdentityByID(t *testing.T) {
	l, _, _ := newTestList(t)
	l.Update(success(model.Todo{ID: "a", Title: "A"}, model.Todo{ID: "b", Title: "B"}))
	a := l.byID["a"]

	l.list.Select(1) // select "b"
	l.Update(success(model.Todo{ID: "b", Title: "B"}, model.Todo{ID: "a", Title: "A2"}, model.Todo{ID: "c", Title: "C"}))

	if l.byID["a"] != a {
		t.Error("item a was recreated")
	}
	if a.Todo().Title != "A2" {
		t.Errorf("item a not updated: %+v", a.Todo())
	}
	order := []string{}
	for _, it := range l.Items() {
		order = append(order, it.Todo().ID)
	}
	if strings.Join(order, ",") != "b,a,c" {
		t.Errorf("order: got %v, want server order", order)
	}
	if it := l.selected(); it == nil || it.Todo().ID != "b" {
		t.Errorf("selection not preserved: %+v", it)
	}
}

func TestToggleSendsOnlyInvertedFlag(t *testing.T) {
	l, cache, srv := newTestList(t, model.Todo{ID: "1", Title: "Read"})
	l.Update(success(srv.Todos()...))

	cmd := l.Update(keySpace)
	if cmd == nil {
		t.Fatal("expected toggle command")
	}
	l.Update(cmd())

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].Method != http.MethodPut || reqs[0].Body != `{"completed":true}` {
		t.Fatalf("requests: got %+v", reqs)
	}
	if got := cache.invalidations(); len(got) != 1 || got[0] != TodosKey {
		t.Errorf("invalidations: got %v", got)
	}

	// The checkbox follows the refetched state, not the request.
	item := l.byID["1"]
	if item.Todo().Completed {
		t.Error("item changed before refetch")
	}
	l.Update(success(srv.Todos()...))
	if !item.Todo().Completed || !titleStyle(item.Todo()).GetStrikethrough() {
		t.Error("completed item should render struck through")
	}
}

func TestToggleFailureShowsBanner(t *testing.T) {
	l, cache, srv := newTestList(t, model.Todo{ID: "1", Title: "Read"})
	srv.Fail("update", http.StatusBadGateway)
	l.Update(success(srv.Todos()...))

	cmd := l.Update(keySpace)
	l.Update(cmd())

	if b := l.Banner(); b.Kind() != BannerError || b.Text() != msgUpdateFailed {
		t.Errorf("banner: got %v %q", b.Kind(), b.Text())
	}
	if n := len(cache.invalidations()); n != 0 {
		t.Errorf("invalidations: got %d, want 0", n)
	}
}

func TestDeleteDisablesControlWhilePending(t *testing.T) {
	l, cache, srv := newTestList(t, model.Todo{ID: "1", Title: "a"}, model.Todo{ID: "2", Title: "b"})
	l.Update(success(srv.Todos()...))
	item := l.byID["1"]

	cmd := l.Update(keyRunes("d"))
	if cmd == nil {
		t.Fatal("expected delete command")
	}
	if !item.DeleteDisabled() || item.DeleteLabel() != "..." {
		t.Errorf("delete control: disabled=%v label=%q", item.DeleteDisabled(), item.DeleteLabel())
	}
	if again := l.Update(keyRunes("d")); again != nil {
		t.Error("second delete dispatched while pending")
	}

	l.Update(cmd())
	if got := cache.invalidations(); len(got) != 1 {
		t.Errorf("invalidations: got %v", got)
	}
	l.Update(success(srv.Todos()...))
	if _, ok := l.byID["1"]; ok {
		t.Error("deleted item still listed")
	}
}

func TestDeleteFailureShowsBanner(t *testing.T) {
	l, cache, srv := newTestList(t, model.Todo{ID: "1", Title: "a"})
	srv.Fail("delete", http.StatusInternalServerError)
	l.Update(success(srv.Todos()...))

	cmd := l.Update(keyRunes("x"))
	l.Update(cmd())
	if b := l.Banner(); b.Text() != msgDeleteFailed {
		t.Errorf("banner: got %q", b.Text())
	}
	if l.byID["1"].DeleteDisabled() {
		t.Error("delete control should re-enable after failure")
	}
	if n := len(cache.invalidations()); n != 0 {
		t.Errorf("invalidations: got %d, want 0", n)
	}
}

func TestRefreshKeyInvalidates(t *testing.T) {
	l, cache, _ := newTestList(t)
	l.Update(success())
	l.Update(keyRunes("r"))
	if got := cache.invalidations(); len(got) != 1 {
		t.Errorf("invalidations: got %v", got)
	}
}

func TestUnfocusedListIgnoresKeys(t *testing.T) {
	l, _, srv := newTestList(t, model.Todo{ID: "1", Title: "a"})
	l.Update(success(srv.Todos()...))
	l.Blur()
	if cmd := l.Update(keyRunes("d")); cmd != nil {
		t.Error("unfocused list reacted to a key")
	}
}

// ---- end to end through the real cache ----

// nextSettled pumps cache states into l until one is not fetching.
func nextSettled(t *testing.T, l *List) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg := l.waitForState()().(stateMsg)
		l.Update(msg)
		if !msg.state.Fetching && msg.state.Status != query.StatusLoading {
			return
		}
	}
	t.Fatal("cache never settled")
}

func TestAppFlowWithCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, store := newStore(t, model.Todo{ID: "1", Title: "Existing"})
	cache := query.New[[]model.Todo](ctx)
	cache.Register(TodosKey, store.List)

	app := NewApp(ctx, Deps{Store: store, Cache: cache, Logger: logging.Discard(), BannerTTL: time.Hour})
	defer app.Close()
	app.Init()
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	if app.list.ViewState() != ViewLoading {
		t.Errorf("initial: got %v, want loading", app.list.ViewState())
	}
	nextSettled(t, app.list)
	if app.list.ViewState() != ViewPopulated || len(app.list.Items()) != 1 {
		t.Fatalf("after fetch: got %v with %d items", app.list.ViewState(), len(app.list.Items()))
	}

	// Create through the form.
	for _, r := range "New one" {
		app.Update(keyRunes(string(r)))
	}
	_, cmd := app.Update(keyEnter)
	app.Update(cmd())
	nextSettled(t, app.list)
	if n := len(app.list.Items()); n != 2 {
		t.Fatalf("after create: got %d items, want 2", n)
	}

	// Tab twice reaches the list; toggle the first item.
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != focusList {
		t.Fatalf("focus: got %v, want list", app.focus)
	}
	_, cmd = app.Update(keySpace)
	app.Update(cmd())
	nextSettled(t, app.list)
	if !app.list.Items()[0].Todo().Completed {
		t.Error("toggle not reflected after refetch")
	}
	if done, pending, total := app.list.Stats(); done != 1 || pending != 1 || total != 2 {
		t.Errorf("stats: got %d/%d/%d", done, pending, total)
	}
	if !strings.Contains(app.View(), "Total") {
		t.Error("header missing")
	}

	// Delete it.
	_, cmd = app.Update(keyRunes("d"))
	app.Update(cmd())
	nextSettled(t, app.list)
	if n := len(srv.Todos()); n != 1 || len(app.list.Items()) != 1 {
		t.Errorf("after delete: server=%d list=%d", n, len(app.list.Items()))
	}

	// q quits from the list.
	if _, cmd := app.Update(keyRunes("q")); cmd == nil {
		t.Error("expected quit command")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestListShowsErrorFromCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, store := newStore(t)
	srv.Fail("list", http.StatusServiceUnavailable)
	cache := query.New[[]model.Todo](ctx)
	cache.Register(TodosKey, store.List)

	l := NewList(ctx, store, cache, logging.Discard(), time.Hour)
	l.Init()
	defer l.Close()
	nextSettled(t, l)
	if l.ViewState() != ViewError {
		t.Errorf("got %v, want error", l.ViewState())
	}
}
