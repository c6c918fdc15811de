package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://leaderboardbackend.netlify.app"
	DefaultLimit   = 10
)

var (
	// ErrTransport is wrapped by every failed backend call: network errors,
	// non-2xx statuses and undecodable bodies alike.
	ErrTransport = errors.New("backend request failed")
	ErrMalformed = errors.New("malformed backend response")
)

// StatusError reports a non-2xx answer. Callers only need errors.Is(err, ErrTransport).
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// CallRecorder receives one entry per backend call.
type CallRecorder interface {
	RecordCall(ctx context.Context, call *model.BackendCall) error
}

// rawBody receives a 2xx body undecoded, even when it is not JSON.
type rawBody []byte

type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type Client struct {
	baseURL  string
	http     *http.Client
	recorder CallRecorder
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithRecorder(r CallRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

func New(cfg Config, opts ...Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) ListUsers(ctx context.Context, page, limit int) ([]model.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users", pageQuery(page, limit), nil, &raw); err != nil {
		return nil, err
	}

	users, err := decodeUserList(raw)
	if err != nil {
		return nil, transportError(errors.Wrap(err, "GET /users"))
	}

	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, draft model.NewUser) (*model.User, error) {
	req := createUserRequest{
		Name:           draft.Name,
		ProfilePicture: draft.ProfilePicture,
	}

	var raw rawBody
	if err := c.do(ctx, http.MethodPost, "/users", nil, req, &raw); err != nil {
		return nil, err
	}

	// Some deployments answer with a bare acknowledgement instead of the
	// created document.
	user := model.User{Name: draft.Name}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var out userDTO
		if err := json.Unmarshal(raw, &out); err == nil {
			user = out.toModel()
			if user.Name == "" {
				user.Name = draft.Name
			}
		}
	}

	return &user, nil
}

func (c *Client) ClaimPoints(ctx context.Context, userID string) (*model.Claim, error) {
	path := fmt.Sprintf("/users/%s/claim", url.PathEscape(userID))

	var out claimResponse
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}

	return &model.Claim{
		Points:  out.Points,
		Message: out.Message,
	}, nil
}

func (c *Client) ListHistory(ctx context.Context, page, limit int) ([]model.HistoryRecord, error) {
	var out historyResponse
	if err := c.do(ctx, http.MethodGet, "/history", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}

	if out.History == nil {
		return nil, transportError(errors.Wrap(ErrMalformed, "GET /history: missing history"))
	}

	records := make([]model.HistoryRecord, 0, len(*out.History))
	for _, h := range *out.History {
		records = append(records, h.toModel())
	}

	return records, nil
}

func (c *Client) ListRankedUsers(ctx context.Context, page, limit int) ([]model.User, error) {
	var out rankedResponse
	if err := c.do(ctx, http.MethodGet, "/users/ranked", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}

	if out.Users == nil {
		return nil, transportError(errors.Wrap(ErrMalformed, "GET /users/ranked: missing users"))
	}

	users := make([]model.User, 0, len(*out.Users))
	for _, u := range *out.Users {
		users = append(users, u.toModel())
	}

	return users, nil
}

// RecomputeRanks asks the backend to refresh rank values. The ack body is ignored.
func (c *Client) RecomputeRanks(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/users/ranks/update", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	log := logger.Named("client")

	call := &model.BackendCall{
		ID:     uuid.New(),
		Method: method,
		Path:   path,
		At:     time.Now().UTC(),
	}
	defer func() {
		call.Duration = time.Since(call.At)
		c.record(ctx, call)
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			call.Error = err.Error()
			return transportError(errors.Wrapf(err, "%s %s: encode body", method, path))
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		call.Error = err.Error()
		log.Warn("failed to build backend request", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return transportError(errors.Wrapf(err, "%s %s: build request", method, path))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		call.Error = err.Error()
		log.Warn("backend call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return transportError(errors.Wrapf(err, "%s %s", method, path))
	}
	defer resp.Body.Close()

	call.Status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		call.Error = err.Error()
		return transportError(errors.Wrapf(err, "%s %s: read body", method, path))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Method: method, Path: path, Status: resp.StatusCode}
		call.Error = statusErr.Error()
		log.Warn("backend returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return transportError(statusErr)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if dst, ok := out.(*rawBody); ok {
		*dst = raw
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		call.Error = err.Error()
		return transportError(errors.Wrapf(err, "%s %s: decode body", method, path))
	}

	return nil
}

func (c *Client) record(ctx context.Context, call *model.BackendCall) {
	if c.recorder == nil {
		return
	}

	if err := c.recorder.RecordCall(context.WithoutCancel(ctx), call); err != nil {
		logger.Named("client").Warn("failed to journal backend call",
			zap.String("path", call.Path),
			zap.Error(err))
	}
}

func transportError(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransport, cause)
}

func pageQuery(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}
