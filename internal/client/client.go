// Package client talks to the report API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-crm-reports/internal/common/models"

	"go.uber.org/zap"
)

const basePath = "/api/reports"

type Client struct {
	BaseURL    string
	Token      string
	HttpClient *http.Client
	log        *zap.Logger
}

func New(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HttpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Content json.RawMessage `json:"content"`
	Message string          `json:"message"`
}

func (c *Client) ListReports(ctx context.Context) ([]models.ReportSummary, error) {
	var out []models.ReportSummary
	if err := c.call(ctx, http.MethodGet, basePath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*models.ReportConfig, error) {
	var out models.ReportConfig
	if err := c.call(ctx, http.MethodGet, basePath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReport(ctx context.Context, id string, cfg *models.ReportConfig) error {
	return c.call(ctx, http.MethodPut, basePath+"/"+url.PathEscape(id), cfg, nil)
}

func (c *Client) CreateReport(ctx context.Context, cfg *models.ReportConfig) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, basePath, cfg, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &TransportError{Method: http.MethodPost, URL: c.BaseURL + basePath, Err: errors.New("reply carries no report id")}
	}
	return out.ID, nil
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, basePath+"/"+url.PathEscape(id), nil, nil)
}

// Preview asks the server for the rows and card data of cfg.
func (c *Client) Preview(ctx context.Context, cfg *models.ReportConfig) (*models.PreviewResult, error) {
	raw, err := c.do(ctx, http.MethodPost, basePath+"/preview", cfg)
	if err != nil {
		return nil, err
	}
	var out models.PreviewResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Method: http.MethodPost, URL: c.BaseURL + basePath + "/preview", Err: err}
	}
	return &out, nil
}

// ExportPreview downloads the preview rows of cfg as an xlsx workbook.
func (c *Client) ExportPreview(ctx context.Context, cfg *models.ReportConfig) ([]byte, error) {
	return c.do(ctx, http.MethodPost, basePath+"/preview/export", cfg)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &TransportError{Method: method, URL: c.BaseURL + path, Err: err}
	}
	if len(env.Content) == 0 || string(env.Content) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Content, out); err != nil {
		return &TransportError{Method: method, URL: c.BaseURL + path, Err: fmt.Errorf("decoding content: %w", err)}
	}
	return nil
}

// do sends one request and returns the raw body of a successful reply.
// JSON replies are checked for a non-zero envelope code.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	target := c.BaseURL + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "reportctl")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Status: resp.StatusCode, Err: err}
	}
	c.log.Debug("report api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if resp.StatusCode >= 300 {
			return nil, &TransportError{Method: method, URL: target, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		}
		return raw, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Method: method, URL: target, Status: resp.StatusCode, Err: err}
	}
	if env.Code != models.CodeOK {
		return nil, &APIError{Code: env.Code, Status: resp.StatusCode, Message: env.Message}
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Code: models.CodeInternal, Status: resp.StatusCode, Message: env.Message}
	}
	return raw, nil
}
