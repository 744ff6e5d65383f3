// Package backend is the HTTP client of the schedule backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/netutil"
)

var (
	// ErrNotFound is returned when the backend has no such user.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnsuccessful is returned when a 2xx body carries success=false.
	ErrUnsuccessful = errors.New("backend: unsuccessful response")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Options configures New.
type Options struct {
	BaseURL string
	// APIKey is sent as x-api-key on the notification endpoints when set.
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default retrying client.
	HTTPClient *http.Client
}

// Client calls the schedule backend. It is safe for concurrent use.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// New builds a client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = netutil.NewClient(netutil.ClientOptions{Timeout: opts.Timeout, Retries: 1, Backoff: 300 * time.Millisecond})
	}
	return &Client{base: strings.TrimRight(opts.BaseURL, "/"), apiKey: opts.APIKey, http: hc}
}

// RegisterUser creates or updates the backend record of a chat user.
func (c *Client) RegisterUser(ctx context.Context, r Registration) error {
	return c.do(ctx, http.MethodPost, "/api/webhooks/telegram/register", nil, false, r, nil)
}

// FetchUser returns the backend record for telegramID or ErrNotFound.
func (c *Client) FetchUser(ctx context.Context, telegramID int64) (User, error) {
	var out struct {
		Success bool  `json:"success"`
		User    *User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, userPath(telegramID), nil, false, nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if !out.Success || out.User == nil {
		return User{}, ErrNotFound
	}
	return *out.User, nil
}

// DeleteUser removes the backend record of telegramID.
func (c *Client) DeleteUser(ctx context.Context, telegramID int64) error {
	return c.do(ctx, http.MethodDelete, userPath(telegramID), nil, false, nil, nil)
}

// ListGroups returns the group names in backend order.
func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	var out struct {
		Groups []string `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/schedule/groups", nil, false, nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// ListTeachers returns the teachers in backend order.
func (c *Client) ListTeachers(ctx context.Context) ([]Teacher, error) {
	var out struct {
		Teachers []Teacher `json:"teachers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/schedule/teachers", nil, false, nil, &out); err != nil {
		return nil, err
	}
	return out.Teachers, nil
}

// GroupSchedule fetches the schedule of group for period. The subgroup filter
// is omitted for "all".
func (c *Client) GroupSchedule(ctx context.Context, group, period, subgroup string) (Schedule, error) {
	var q url.Values
	if subgroup != "" && subgroup != "all" {
		q = url.Values{"subgroup": {subgroup}}
	}
	path := "/api/schedule/group/" + url.PathEscape(group) + "/" + url.PathEscape(period)
	return c.schedule(ctx, path, q)
}

// TeacherSchedule fetches the schedule of a teacher for period.
func (c *Client) TeacherSchedule(ctx context.Context, teacherID, period string) (Schedule, error) {
	path := "/api/schedule/teacher/" + url.PathEscape(teacherID) + "/" + url.PathEscape(period)
	return c.schedule(ctx, path, nil)
}

func (c *Client) schedule(ctx context.Context, path string, q url.Values) (Schedule, error) {
	var out Schedule
	if err := c.do(ctx, http.MethodGet, path, q, false, nil, &out); err != nil {
		return Schedule{}, err
	}
	if !out.Success {
		return Schedule{}, ErrUnsuccessful
	}
	return out, nil
}

// PendingNotifications fetches up to limit undelivered notifications.
func (c *Client) PendingNotifications(ctx context.Context, limit int) ([]Notification, error) {
	var out struct {
		Notifications []rawNotification `json:"notifications"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/api/webhooks/telegram/pending-notifications", q, true, nil, &out); err != nil {
		return nil, err
	}
	list := make([]Notification, 0, len(out.Notifications))
	for _, raw := range out.Notifications {
		list = append(list, raw.decode())
	}
	return list, nil
}

// ReportStatus records the delivery outcome of one notification.
func (c *Client) ReportStatus(ctx context.Context, r StatusReport) error {
	return c.do(ctx, http.MethodPost, "/api/webhooks/telegram/notification-status", nil, true, r, nil)
}

func userPath(telegramID int64) string {
	return "/api/webhooks/telegram/user/" + strconv.FormatInt(telegramID, 10)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, keyed bool, in, out any) (err error) {
	start := time.Now()
	code := 0
	defer func() {
		lvl := slog.LevelDebug
		if err != nil && !errors.Is(err, ErrNotFound) {
			lvl = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("method", method),
			slog.String("endpoint", path),
			slog.Int("http_code", code),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
		logger.Event(ctx, logger.CompBackend, lvl, "backend.call", attrs...)
	}()

	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("backend: build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if keyed && c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	code = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}
