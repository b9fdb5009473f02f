package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 5 * time.Minute
)

// Client talks to the analytics API. All typed endpoint methods live in
// api.go and go through do.
type Client struct {
	ServerURL  string
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(serverURL, token string) *Client {
	serverURL = strings.TrimRight(serverURL, "/")
	return &Client{
		ServerURL:  serverURL,
		BaseURL:    serverURL + apiPrefix,
		Token:      token,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

// Response is the server's {success, data | error, pagination} envelope.
type Response[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// APIError carries a non-2xx status and the envelope's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func apiError(status int, body []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return &APIError{Status: status, Message: envelope.Error}
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
}

// do sends one API request. body, when non-nil, is sent as JSON unless it
// is already an io.Reader, in which case contentType must be set.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, contentType string, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// upload streams filePath as the multipart "file" field without buffering
// the whole workbook in memory.
func (c *Client) upload(ctx context.Context, path, filePath string, fields map[string]string, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		for k, v := range fields {
			if err := form.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := form.CreateFormFile("file", filepath.Base(filePath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	return c.do(ctx, http.MethodPost, path, nil, pr, form.FormDataContentType(), out)
}

// Download fetches rawURL into dest and returns the number of bytes written.
// Relative URLs, as handed out for signed links, resolve against the server.
// dest is only replaced once the body has been fully received.
func (c *Client) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	if strings.HasPrefix(rawURL, "/") {
		rawURL = c.ServerURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return 0, apiError(resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".excelctl-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
