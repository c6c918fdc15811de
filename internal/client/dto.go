package client

import (
	"bytes"
	"strconv"
	"time"

	"leaderboard_miniapp/internal/model"

	"github.com/goccy/go-json"
)

type userDTO struct {
	MongoID        string `json:"_id"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	Photo          string `json:"photo"`
	Points         int    `json:"points"`
	Rank           *int   `json:"rank"`
}

func (u userDTO) toModel() model.User {
	id := u.MongoID
	if id == "" {
		id = u.ID
	}

	picture := u.Photo
	if picture == "" {
		picture = u.ProfilePicture
	}

	return model.User{
		ID:             id,
		Name:           u.Name,
		ProfilePicture: picture,
		Points:         u.Points,
		Rank:           u.Rank,
	}
}

type createUserRequest struct {
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type claimResponse struct {
	Points  int    `json:"points"`
	Message string `json:"message"`
}

type historyDTO struct {
	MongoID string          `json:"_id"`
	ID      string          `json:"id"`
	UserID  json.RawMessage `json:"userId"`
	Points  int             `json:"points"`
	Date    json.RawMessage `json:"date"`
}

func (h historyDTO) toModel() model.HistoryRecord {
	id := h.MongoID
	if id == "" {
		id = h.ID
	}

	record := model.HistoryRecord{
		ID:     id,
		User:   decodeUserRef(h.UserID),
		Points: h.Points,
	}

	if at, ok := parseDate(h.Date); ok {
		record.Date = &at
	}

	return record
}

// Zone-less layouts are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseDate accepts epoch milliseconds or a date string. Anything else
// leaves the record without a date.
func parseDate(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if at, err := time.Parse(layout, s); err == nil {
			return at, true
		}
	}

	return time.Time{}, false
}

// decodeUserRef accepts the populated user object or a bare id string.
func decodeUserRef(raw json.RawMessage) *model.UserRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil
		}
		return &model.UserRef{ID: id}
	}

	var u userDTO
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}

	m := u.toModel()
	return &model.UserRef{
		ID:             m.ID,
		Name:           m.Name,
		ProfilePicture: m.ProfilePicture,
	}
}

type historyResponse struct {
	History *[]historyDTO `json:"history"`
}

type rankedResponse struct {
	Users *[]userDTO `json:"users"`
}

// decodeUserList accepts either a bare array or an object carrying "users".
func decodeUserList(raw json.RawMessage) ([]model.User, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.User{}, nil
	}

	var list []userDTO
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Users []userDTO `json:"users"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		list = wrapped.Users
	}

	users := make([]model.User, 0, len(list))
	for _, u := range list {
		users = append(users, u.toModel())
	}

	return users, nil
}
