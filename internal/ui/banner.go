package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// BannerKind tells a success banner from an error one.
type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerSuccess
	BannerError
)

type bannerExpiredMsg struct {
	owner string
	gen   int
}

// Banner is a transient message that clears itself after ttl.
// Every Set or Clear bumps the generation, so expiry ticks scheduled
// for an earlier message are ignored.
type Banner struct {
	owner string
	ttl   time.Duration
	kind  BannerKind
	text  string
	gen   int
}

// NewBanner returns an empty banner. owner routes expiry ticks.
func NewBanner(owner string, ttl time.Duration) Banner {
	return Banner{owner: owner, ttl: ttl}
}

// Set shows text. Call Schedule to arm its expiry.
func (b *Banner) Set(kind BannerKind, text string) {
	b.gen++
	b.kind, b.text = kind, text
}

// Clear hides the banner and cancels any pending expiry.
func (b *Banner) Clear() {
	b.gen++
	b.kind, b.text = BannerNone, ""
}

// Schedule returns a tick that expires the current message, or nil when
// nothing is shown.
func (b *Banner) Schedule() tea.Cmd {
	if b.kind == BannerNone {
		return nil
	}
	owner, gen := b.owner, b.gen
	return tea.Tick(b.ttl, func(time.Time) tea.Msg {
		return bannerExpiredMsg{owner: owner, gen: gen}
	})
}

// Expire clears the banner if msg belongs to the message still shown.
func (b *Banner) Expire(msg bannerExpiredMsg) bool {
	if msg.owner != b.owner || msg.gen != b.gen || b.kind == BannerNone {
		return false
	}
	b.Clear()
	return true
}

func (b Banner) Kind() BannerKind { return b.kind }
func (b Banner) Text() string     { return b.text }
func (b Banner) Visible() bool    { return b.kind != BannerNone }

// View renders the banner, or "" when hidden.
func (b Banner) View() string {
	t := Current()
	switch b.kind {
	case BannerSuccess:
		return t.BannerOK.Render(b.text)
	case BannerError:
		return t.BannerErr.Render(b.text)
	}
	return ""
}
