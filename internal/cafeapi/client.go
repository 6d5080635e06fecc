// Package cafeapi is the HTTP client for the café/employee REST API. Every
// method performs exactly one request and never retries.
package cafeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phillip-england/cafesuite/internal/domain"
)

var ErrMissingID = errors.New("cafeapi: record id is required")

// Error is a non-2xx response. Message carries the server's detail when the
// body provided one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Ack is the body of delete responses.
type Ack struct {
	Success bool `json:"success"`
}

type LogoUpload struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the API rooted at baseURL (scheme and host, no
// /api suffix). A nil httpClient gets an 8 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListCafes(ctx context.Context, location string) ([]domain.Cafe, error) {
	query := url.Values{}
	if location = strings.TrimSpace(location); location != "" {
		query.Set("location", location)
	}
	var cafes []domain.Cafe
	if err := c.do(ctx, http.MethodGet, "/api/cafes", query, nil, &cafes); err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return cafes, nil
}

func (c *Client) CreateCafe(ctx context.Context, cafe domain.CafeInput) (domain.Cafe, error) {
	cafe.ID = ""
	var out domain.Cafe
	if err := c.do(ctx, http.MethodPost, "/api/cafes", nil, cafe, &out); err != nil {
		return domain.Cafe{}, fmt.Errorf("create cafe: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateCafe(ctx context.Context, cafe domain.CafeInput) (domain.Cafe, error) {
	if strings.TrimSpace(cafe.ID) == "" {
		return domain.Cafe{}, fmt.Errorf("update cafe: %w", ErrMissingID)
	}
	var out domain.Cafe
	if err := c.do(ctx, http.MethodPut, "/api/cafes", nil, cafe, &out); err != nil {
		return domain.Cafe{}, fmt.Errorf("update cafe: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteCafe(ctx context.Context, id string) (Ack, error) {
	if strings.TrimSpace(id) == "" {
		return Ack{}, fmt.Errorf("delete cafe: %w", ErrMissingID)
	}
	var ack Ack
	if err := c.do(ctx, http.MethodDelete, "/api/cafes", url.Values{"id": {id}}, nil, &ack); err != nil {
		return Ack{}, fmt.Errorf("delete cafe: %w", err)
	}
	return ack, nil
}

func (c *Client) ListEmployees(ctx context.Context, cafeID string) ([]domain.Employee, error) {
	query := url.Values{}
	if cafeID = strings.TrimSpace(cafeID); cafeID != "" {
		query.Set("cafe", cafeID)
	}
	var employees []domain.Employee
	if err := c.do(ctx, http.MethodGet, "/api/employees", query, nil, &employees); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

func (c *Client) CreateEmployee(ctx context.Context, employee domain.EmployeeInput) (domain.Employee, error) {
	employee.ID = ""
	var out domain.Employee
	if err := c.do(ctx, http.MethodPost, "/api/employees", nil, employee, &out); err != nil {
		return domain.Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, employee domain.EmployeeInput) (domain.Employee, error) {
	if strings.TrimSpace(employee.ID) == "" {
		return domain.Employee{}, fmt.Errorf("update employee: %w", ErrMissingID)
	}
	var out domain.Employee
	if err := c.do(ctx, http.MethodPut, "/api/employees", nil, employee, &out); err != nil {
		return domain.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) (Ack, error) {
	if strings.TrimSpace(id) == "" {
		return Ack{}, fmt.Errorf("delete employee: %w", ErrMissingID)
	}
	var ack Ack
	if err := c.do(ctx, http.MethodDelete, "/api/employees", url.Values{"id": {id}}, nil, &ack); err != nil {
		return Ack{}, fmt.Errorf("delete employee: %w", err)
	}
	return ack, nil
}

// UploadLogo posts the file as multipart field "file" and returns the stored
// path to place in the café's logo_url.
func (c *Client) UploadLogo(ctx context.Context, data []byte, filename string) (LogoUpload, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return LogoUpload{}, fmt.Errorf("upload logo: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return LogoUpload{}, fmt.Errorf("upload logo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return LogoUpload{}, fmt.Errorf("upload logo: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/cafes/upload-logo", &body)
	if err != nil {
		return LogoUpload{}, fmt.Errorf("upload logo: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out LogoUpload
	if err := c.send(req, &out); err != nil {
		return LogoUpload{}, fmt.Errorf("upload logo: %w", err)
	}
	if out.FilePath == "" {
		return LogoUpload{}, errors.New("upload logo: response is missing file_path")
	}
	return out, nil
}

// FetchFile downloads a static file served by the API host, such as an
// uploaded logo referenced by relative path.
func (c *Client) FetchFile(ctx context.Context, path string) ([]byte, string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" || strings.Contains(path, "..") {
		return nil, "", fmt.Errorf("fetch file: invalid path %q", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch file: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch file: %w", decodeError(resp))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", fmt.Errorf("fetch file: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &Error{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Message = detailMessage(payload.Detail)
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

// detailMessage accepts a plain string detail or a list of validation
// entries with "msg" fields.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Msg != "" {
				msgs = append(msgs, entry.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// Message extracts the server message from err, falling back to fallback
// when err did not come from an API response.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
