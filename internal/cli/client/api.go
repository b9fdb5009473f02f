package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var resp Response[AuthResponse]
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, "", &resp)
	return resp.Data, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var resp Response[User]
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var resp Response[VersionInfo]
	err := c.do(ctx, http.MethodGet, "/version", nil, nil, "", &resp)
	return resp.Data, err
}

// FileFilter maps onto the query parameters of GET /files.
type FileFilter struct {
	Status string
	Search string
	Tag    string
	Sort   string
	Order  string
	All    bool
	Page   int
}

func (f FileFilter) values() url.Values {
	q := url.Values{}
	for key, v := range map[string]string{
		"status": f.Status,
		"search": f.Search,
		"tag":    f.Tag,
		"sort":   f.Sort,
		"order":  f.Order,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	if f.All {
		q.Set("all", "true")
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

func (c *Client) ListFiles(ctx context.Context, filter FileFilter) ([]File, *Pagination, error) {
	var resp Response[[]File]
	err := c.do(ctx, http.MethodGet, "/files", filter.values(), nil, "", &resp)
	return resp.Data, resp.Pagination, err
}

func (c *Client) GetFile(ctx context.Context, id string) (File, error) {
	var resp Response[File]
	err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(id), nil, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) FileStatus(ctx context.Context, id string) (FileStatus, error) {
	var resp Response[FileStatus]
	err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(id)+"/status", nil, nil, "", &resp)
	return resp.Data, err
}

// UploadOptions are the optional form fields of an upload.
type UploadOptions struct {
	Description string
	Tags        []string
	Public      bool
}

func (c *Client) UploadFile(ctx context.Context, path string, opts UploadOptions) (File, error) {
	fields := map[string]string{}
	if opts.Description != "" {
		fields["description"] = opts.Description
	}
	if len(opts.Tags) > 0 {
		fields["tags"] = strings.Join(opts.Tags, ",")
	}
	if opts.Public {
		fields["isPublic"] = "true"
	}
	var resp Response[File]
	err := c.upload(ctx, "/files/upload", path, fields, &resp)
	return resp.Data, err
}

func (c *Client) DownloadURL(ctx context.Context, id string) (DownloadURLResponse, error) {
	var resp Response[DownloadURLResponse]
	err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(id)+"/download-url", nil, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) ReprocessFile(ctx context.Context, id string) (ProcessingJob, error) {
	var resp Response[ProcessingJob]
	err := c.do(ctx, http.MethodPost, "/files/"+url.PathEscape(id)+"/reprocess", nil, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(id), nil, nil, "", nil)
}

// GenerateChart previews a chart built from a file, or saves it when
// req.Save is set.
func (c *Client) GenerateChart(ctx context.Context, req GenerateChartRequest) (Chart, error) {
	var resp Response[Chart]
	err := c.do(ctx, http.MethodPost, "/charts/generate", nil, req, "", &resp)
	return resp.Data, err
}

func (c *Client) ListCharts(ctx context.Context, chartType string, page int) ([]Chart, *Pagination, error) {
	q := url.Values{}
	if chartType != "" {
		q.Set("chartType", chartType)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	var resp Response[[]Chart]
	err := c.do(ctx, http.MethodGet, "/charts", q, nil, "", &resp)
	return resp.Data, resp.Pagination, err
}

func (c *Client) GetChart(ctx context.Context, id string) (Chart, error) {
	var resp Response[Chart]
	err := c.do(ctx, http.MethodGet, "/charts/"+url.PathEscape(id), nil, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) DeleteChart(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/charts/"+url.PathEscape(id), nil, nil, "", nil)
}

func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	var resp Response[[]Notification]
	err := c.do(ctx, http.MethodGet, "/notifications", q, nil, "", &resp)
	return resp.Data, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (Notification, error) {
	var resp Response[Notification]
	err := c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, "", &resp)
	return resp.Data, err
}

// MarkAllNotificationsRead returns how many notifications changed state.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var resp Response[struct {
		Updated int64 `json:"updated"`
	}]
	err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil, "", &resp)
	return resp.Data.Updated, err
}
