// Package client provides an HTTP client for the Stockroom server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// Client talks to the Stockroom ingestion API.
type Client struct {
	endpoint   string
	actor      string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses STOCKROOM_SERVER_URL env var or defaults to
// localhost:8380. Timeout can be configured via STOCKROOM_CLIENT_TIMEOUT
// (default 10m: a chunk of large files can take a while).
func New(endpoint, actor string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("STOCKROOM_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8380"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("STOCKROOM_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		actor:    actor,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChunkResult is the server's response to one chunk call.
type ChunkResult struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Stats   models.Stats `json:"stats"`
}

// importRequest mirrors the server's import chunk body.
type importRequest struct {
	Actor       string       `json:"actor,omitempty"`
	ProjectCode string       `json:"projectCode,omitempty"`
	Total       int          `json:"total"`
	IsLast      bool         `json:"isLast"`
	Stats       models.Stats `json:"stats"`
	Rows        []models.Row `json:"rows"`
}

// uploadMeta mirrors the server's upload "meta" form field.
type uploadMeta struct {
	Actor  string       `json:"actor,omitempty"`
	Ref    string       `json:"ref,omitempty"`
	Total  int          `json:"total"`
	IsLast bool         `json:"isLast"`
	Stats  models.Stats `json:"stats"`
}

// ImportItemsChunk sends one chunk of inventory rows.
func (c *Client) ImportItemsChunk(ctx context.Context, rows []models.Row, total int, stats models.Stats, isLast bool) (*ChunkResult, error) {
	return c.postChunk(ctx, "/v1/import/items", importRequest{
		Actor: c.actor, Total: total, IsLast: isLast, Stats: stats, Rows: rows,
	})
}

// ImportIndividualsChunk sends one chunk of project-individual rows.
func (c *Client) ImportIndividualsChunk(ctx context.Context, projectCode string, rows []models.Row, total int, stats models.Stats, isLast bool) (*ChunkResult, error) {
	return c.postChunk(ctx, "/v1/import/individuals", importRequest{
		Actor: c.actor, ProjectCode: projectCode, Total: total, IsLast: isLast, Stats: stats, Rows: rows,
	})
}

func (c *Client) postChunk(ctx context.Context, path string, body importRequest) (*ChunkResult, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// UploadAttachmentsChunk sends one chunk of files as a multipart request.
func (c *Client) UploadAttachmentsChunk(ctx context.Context, entity, ref string, files []models.FileUnit, total int, stats models.Stats, isLast bool) (*ChunkResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaJSON, err := json.Marshal(uploadMeta{
		Actor: c.actor, Ref: ref, Total: total, IsLast: isLast, Stats: stats,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if err := mw.WriteField("meta", string(metaJSON)); err != nil {
		return nil, fmt.Errorf("write meta field: %w", err)
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/attachments/"+entity, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req)
}

// ErrorsReport asks the server for the exportable report of a stats
// object's accumulated errors.
func (c *Client) ErrorsReport(ctx context.Context, stats models.Stats) (*models.ErrorReport, error) {
	reqBody, err := json.Marshal(map[string]any{"stats": stats})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/errors/report", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, readBody(resp.Body))
	}

	var report models.ErrorReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

func (c *Client) do(req *http.Request) (*ChunkResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, readBody(resp.Body))
	}

	var result ChunkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(data)
}
