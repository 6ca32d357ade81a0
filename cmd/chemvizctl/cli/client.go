package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/httpx"
)

// errStaleID is returned when the server no longer holds a dataset, most
// likely because newer uploads evicted it.
var errStaleID = errors.New("dataset not found on server; run 'chemvizctl history' to refresh the list of ids")

// apiClient calls the chemviz HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(s Settings) (*apiClient, error) {
	hc, err := httpx.NewClient(s.TLS(), s.Timeout)
	if err != nil {
		return nil, err
	}
	return &apiClient{baseURL: s.Server, http: hc}, nil
}

// uploadResult is the parsed body of a successful upload.
type uploadResult struct {
	ID               string
	Count            int64
	AvgFlowrate      float64
	AvgPressure      float64
	AvgTemperature   float64
	TypeDistribution map[string]int64
}

func (c *apiClient) upload(ctx context.Context, path string) (*uploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.do(req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(data)
	res := &uploadResult{
		ID:               doc.Get("id").String(),
		Count:            doc.Get("count").Int(),
		AvgFlowrate:      doc.Get("avg_flowrate").Float(),
		AvgPressure:      doc.Get("avg_pressure").Float(),
		AvgTemperature:   doc.Get("avg_temperature").Float(),
		TypeDistribution: map[string]int64{},
	}
	doc.Get("type_distribution").ForEach(func(k, v gjson.Result) bool {
		res.TypeDistribution[k.String()] = v.Int()
		return true
	})
	if res.ID == "" {
		return nil, fmt.Errorf("server response has no dataset id")
	}
	return res, nil
}

// historyEntry is one row of the server history.
type historyEntry struct {
	ID         string
	Name       string
	UploadedAt string
	Count      int64
}

func (c *apiClient) history(ctx context.Context, limit int) ([]historyEntry, error) {
	u := c.baseURL + "/api/history"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	data, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var out []historyEntry
	for _, item := range gjson.ParseBytes(data).Array() {
		out = append(out, historyEntry{
			ID:         item.Get("id").String(),
			Name:       item.Get("name").String(),
			UploadedAt: item.Get("uploaded_at").String(),
			Count:      item.Get("summary.count").Int(),
		})
	}
	return out, nil
}

// download fetches a report and returns its body and the server-suggested
// filename.
func (c *apiClient) download(ctx context.Context, id, format string) ([]byte, string, error) {
	u := fmt.Sprintf("%s/api/report/%s?format=%s", c.baseURL, url.PathEscape(id), url.QueryEscape(format))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", responseError(resp.StatusCode, data)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = filepath.Base(params["filename"])
	}
	return data, filename, nil
}

func (c *apiClient) do(req *http.Request, want int) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return nil, responseError(resp.StatusCode, data)
	}
	return data, nil
}

func responseError(status int, body []byte) error {
	if status == http.StatusNotFound && gjson.GetBytes(body, "code").String() == httpx.CodeNotFound {
		return errStaleID
	}
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	if code := gjson.GetBytes(body, "code").String(); code != "" {
		return fmt.Errorf("server returned %d %s: %s", status, code, msg)
	}
	return fmt.Errorf("server returned %d: %s", status, msg)
}
