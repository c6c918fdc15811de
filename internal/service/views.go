package service

import (
	"context"

	"leaderboard_miniapp/internal/model"

	"github.com/benbjohnson/clock"
)

type ViewName string

const (
	FriendsView     ViewName = "friends"
	HistoryView     ViewName = "history"
	LeaderboardView ViewName = "leaderboard"
)

func ParseViewName(s string) (ViewName, bool) {
	switch v := ViewName(s); v {
	case FriendsView, HistoryView, LeaderboardView:
		return v, true
	}
	return "", false
}

// View is one mounted screen. Close must be called when the viewer leaves it.
type View interface {
	Name() ViewName
	Mount(ctx context.Context)
	Next(ctx context.Context) bool
	Prev(ctx context.Context) bool
	Reload(ctx context.Context)
	Close()
}

type ViewDeps struct {
	Backend   Backend
	Announcer ClaimAnnouncer
	Clock     clock.Clock
	PageSize  int
	OnChange  func()
}

func (d ViewDeps) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return PageSize
}

func NewView(name ViewName, deps ViewDeps) View {
	switch name {
	case HistoryView:
		return NewHistory(deps)
	case LeaderboardView:
		return NewLeaderboard(deps)
	default:
		return NewFriends(deps)
	}
}

type Friends struct {
	List   *Pager[model.User]
	Detail *ClaimFlow
	Create *CreateFlow
}

type FriendsState struct {
	List   PageState[model.User]
	Detail DetailState
	Create CreateState
}

func NewFriends(deps ViewDeps) *Friends {
	f := &Friends{}
	f.List = NewPager[model.User](string(FriendsView), deps.Backend.ListUsers,
		WithPageSize(deps.pageSize()),
		WithErrorMessage(UsersLoadFailed),
		WithOnChange(deps.OnChange))

	opts := []ClaimOption{WithClaimOnChange(deps.OnChange)}
	if deps.Clock != nil {
		opts = append(opts, WithClock(deps.Clock))
	}
	if deps.Announcer != nil {
		opts = append(opts, WithAnnouncer(deps.Announcer))
	}
	f.Detail = NewClaimFlow(deps.Backend, f.reloadAfterClaim, opts...)
	f.Create = NewCreateFlow(deps.Backend, f.List.Reload, deps.OnChange)

	return f
}

func (f *Friends) reloadAfterClaim(ctx context.Context) {
	f.List.Reload(ctx)
	f.Detail.Refresh(f.List.State().Items)
}

func (f *Friends) Name() ViewName                { return FriendsView }
func (f *Friends) Mount(ctx context.Context)     { f.List.Mount(ctx) }
func (f *Friends) Next(ctx context.Context) bool { return f.List.Next(ctx) }
func (f *Friends) Prev(ctx context.Context) bool { return f.List.Prev(ctx) }
func (f *Friends) Reload(ctx context.Context)    { f.List.Reload(ctx) }

func (f *Friends) Close() {
	f.List.Close()
	f.Detail.Close()
}

// SelectByID opens the detail of a user on the current page.
func (f *Friends) SelectByID(id string) bool {
	for _, u := range f.List.State().Items {
		if u.ID == id {
			f.Detail.Select(u)
			return true
		}
	}
	return false
}

func (f *Friends) State() FriendsState {
	return FriendsState{
		List:   f.List.State(),
		Detail: f.Detail.State(),
		Create: f.Create.State(),
	}
}

type History struct {
	List *Pager[model.HistoryRecord]
}

func NewHistory(deps ViewDeps) *History {
	return &History{
		List: NewPager[model.HistoryRecord](string(HistoryView), deps.Backend.ListHistory,
			WithPageSize(deps.pageSize()),
			WithErrorMessage(HistoryLoadFailed),
			WithOnChange(deps.OnChange)),
	}
}

func (h *History) Name() ViewName                { return HistoryView }
func (h *History) Mount(ctx context.Context)     { h.List.Mount(ctx) }
func (h *History) Next(ctx context.Context) bool { return h.List.Next(ctx) }
func (h *History) Prev(ctx context.Context) bool { return h.List.Prev(ctx) }
func (h *History) Reload(ctx context.Context)    { h.List.Reload(ctx) }
func (h *History) Close()                        { h.List.Close() }

type Leaderboard struct {
	List *Pager[model.User]
}

func NewLeaderboard(deps ViewDeps) *Leaderboard {
	return &Leaderboard{
		List: NewPager[model.User](string(LeaderboardView), RankedFetch(deps.Backend),
			WithPageSize(deps.pageSize()),
			WithErrorMessage(LeaderboardLoadFailed),
			WithOnChange(deps.OnChange)),
	}
}

func (l *Leaderboard) Name() ViewName                { return LeaderboardView }
func (l *Leaderboard) Mount(ctx context.Context)     { l.List.Mount(ctx) }
func (l *Leaderboard) Next(ctx context.Context) bool { return l.List.Next(ctx) }
func (l *Leaderboard) Prev(ctx context.Context) bool { return l.List.Prev(ctx) }
func (l *Leaderboard) Reload(ctx context.Context)    { l.List.Reload(ctx) }
func (l *Leaderboard) Close()                        { l.List.Close() }

// Position is the absolute leaderboard place of the i-th item on a page.
func Position(page, pageSize, i int) int {
	return (page-1)*pageSize + i + 1
}
