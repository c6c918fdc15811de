package api

import (
	"strconv"
	"time"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/internal/service"
)

const (
	DefaultAvatar = "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp&f=y"

	unknownUser  = "Unknown User"
	noDate       = "No date available"
	dateLayout   = "Jan 2, 2006, 3:04:05 PM"
	noUsers      = "No users found."
	noHistory    = "No history records found."
	noRankedUser = "No ranked users found."
)

// Snapshot is everything the front end needs to render the mounted view.
type Snapshot struct {
	View        service.ViewName     `json:"view"`
	Friends     *FriendsSnapshot     `json:"friends,omitempty"`
	History     *HistorySnapshot     `json:"history,omitempty"`
	Leaderboard *LeaderboardSnapshot `json:"leaderboard,omitempty"`
}

type PageInfo struct {
	Page    int    `json:"page"`
	HasMore bool   `json:"hasMore"`
	HasPrev bool   `json:"hasPrev"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Empty   string `json:"empty,omitempty"`
}

type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	Points         int    `json:"points"`
	Rank           *int   `json:"rank,omitempty"`
}

// ClaimResultResponse carries points on every successful claim, zero included.
type ClaimResultResponse struct {
	Success bool   `json:"success"`
	Points  *int   `json:"points,omitempty"`
	Message string `json:"message,omitempty"`
}

type CreateResponse struct {
	Open           bool   `json:"open"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Submitting     bool   `json:"submitting"`
	Error          string `json:"error,omitempty"`
}

type FriendsSnapshot struct {
	PageInfo
	Users       []UserResponse       `json:"users"`
	Selected    *UserResponse        `json:"selected,omitempty"`
	ClaimResult *ClaimResultResponse `json:"claimResult,omitempty"`
	Create      CreateResponse       `json:"create"`
}

type HistoryEntry struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Avatar   string `json:"avatar"`
	Date     string `json:"date"`
	Points   string `json:"points"`
}

type HistorySnapshot struct {
	PageInfo
	Entries []HistoryEntry `json:"entries"`
}

type LeaderboardEntry struct {
	Position int    `json:"position"`
	Tier     string `json:"tier,omitempty"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Points   int    `json:"points"`
}

type LeaderboardSnapshot struct {
	PageInfo
	Entries []LeaderboardEntry `json:"entries"`
}

// BuildSnapshot renders a view. A nil view renders as an empty snapshot.
func BuildSnapshot(view service.View) Snapshot {
	switch v := view.(type) {
	case *service.Friends:
		return Snapshot{View: service.FriendsView, Friends: friendsSnapshot(v.State())}
	case *service.History:
		return Snapshot{View: service.HistoryView, History: historySnapshot(v.List.State())}
	case *service.Leaderboard:
		return Snapshot{View: service.LeaderboardView, Leaderboard: leaderboardSnapshot(v.List.State(), v.List.PageSize())}
	}
	return Snapshot{}
}

func pageInfo[T any](s service.PageState[T], empty string) PageInfo {
	info := PageInfo{
		Page:    s.Page,
		HasMore: s.HasMore,
		HasPrev: s.Page > 1,
		Loading: s.Loading,
		Error:   s.Error,
	}
	if !s.Loading && s.Error == "" && len(s.Items) == 0 {
		info.Empty = empty
	}
	return info
}

func friendsSnapshot(s service.FriendsState) *FriendsSnapshot {
	out := &FriendsSnapshot{
		PageInfo: pageInfo(s.List, noUsers),
		Users:    make([]UserResponse, 0, len(s.List.Items)),
		Create: CreateResponse{
			Open:           s.Create.Open,
			Name:           s.Create.Name,
			ProfilePicture: s.Create.ProfilePicture,
			Submitting:     s.Create.Submitting,
			Error:          s.Create.Error,
		},
	}

	for _, u := range s.List.Items {
		out.Users = append(out.Users, toUserResponse(u))
	}
	if s.Detail.Selected != nil {
		selected := toUserResponse(*s.Detail.Selected)
		out.Selected = &selected
	}
	if r := s.Detail.Result; r != nil {
		out.ClaimResult = &ClaimResultResponse{Success: r.Success, Message: r.Message}
		if r.Success {
			points := r.Points
			out.ClaimResult.Points = &points
		}
	}

	return out
}

func historySnapshot(s service.PageState[model.HistoryRecord]) *HistorySnapshot {
	out := &HistorySnapshot{
		PageInfo: pageInfo(s, noHistory),
		Entries:  make([]HistoryEntry, 0, len(s.Items)),
	}

	for _, h := range s.Items {
		entry := HistoryEntry{
			ID:       h.ID,
			UserName: unknownUser,
			Avatar:   DefaultAvatar,
			Date:     formatDate(h.Date),
			Points:   "+" + strconv.Itoa(h.Points),
		}
		if h.User != nil {
			if h.User.Name != "" {
				entry.UserName = h.User.Name
			}
			entry.Avatar = avatar(h.User.ProfilePicture)
		}
		out.Entries = append(out.Entries, entry)
	}

	return out
}

func leaderboardSnapshot(s service.PageState[model.User], pageSize int) *LeaderboardSnapshot {
	out := &LeaderboardSnapshot{
		PageInfo: pageInfo(s, noRankedUser),
		Entries:  make([]LeaderboardEntry, 0, len(s.Items)),
	}

	for i, u := range s.Items {
		position := service.Position(s.Page, pageSize, i)
		out.Entries = append(out.Entries, LeaderboardEntry{
			Position: position,
			Tier:     tier(position),
			ID:       u.ID,
			Name:     u.Name,
			Avatar:   avatar(u.ProfilePicture),
			Points:   u.Points,
		})
	}

	return out
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		ProfilePicture: avatar(u.ProfilePicture),
		Points:         u.Points,
		Rank:           u.Rank,
	}
}

func avatar(picture string) string {
	if picture == "" {
		return DefaultAvatar
	}
	return picture
}

func tier(position int) string {
	switch position {
	case 1:
		return "gold"
	case 2:
		return "silver"
	case 3:
		return "bronze"
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil {
		return noDate
	}
	return t.UTC().Format(dateLayout)
}
