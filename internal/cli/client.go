package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RunResponse — run из API.
type RunResponse struct {
	ID           string           `json:"id"`
	WorkspaceID  string           `json:"workspace_id"`
	UserID       string           `json:"user_id"`
	RunKind      string           `json:"run_kind"`
	Prompt       string           `json:"prompt"`
	Status       string           `json:"status"`
	Progress     int              `json:"progress"`
	CurrentStep  string           `json:"current_step,omitempty"`
	Result       map[string]any   `json:"result,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedNodes []map[string]any `json:"created_nodes,omitempty"`
	CreatedEdges []map[string]any `json:"created_edges,omitempty"`
	CreatedAt    string           `json:"created_at"`
	CompletedAt  string           `json:"completed_at,omitempty"`
}

// MessageResponse — сообщение run'а из API.
type MessageResponse struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Payload   map[string]any `json:"structured_payload,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// TraceResponse — шаг рассуждений из API.
type TraceResponse struct {
	RunID      string `json:"run_id"`
	StepNumber int    `json:"step_number"`
	StepType   string `json:"step_type"`
	Content    string `json:"content"`
	AgentName  string `json:"agent_name,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// --- Request types ---

// CreateRunRequest — создание run.
type CreateRunRequest struct {
	UserID  string         `json:"user_id"`
	RunKind string         `json:"run_kind,omitempty"`
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
}

// AppendMessageRequest — добавление сообщения.
type AppendMessageRequest struct {
	Content string         `json:"content"`
	Payload map[string]any `json:"structured_payload,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	WorkspaceID string
	Status      string
	Limit       int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Synapse API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL возвращает адрес API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.WorkspaceID != "" {
		params.Set("workspace_id", opts.WorkspaceID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// ListActiveRuns возвращает активные runs workspace'а.
func (c *Client) ListActiveRuns(workspaceID string) ([]RunResponse, error) {
	params := url.Values{}
	params.Set("workspace_id", workspaceID)

	var runs []RunResponse
	err := c.list("/api/v1/runs/active", params, &runs)
	return runs, err
}

// CreateRun создаёт run в workspace.
func (c *Client) CreateRun(workspaceID string, req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/workspaces/"+workspaceID+"/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// --- Messages ---

// ListMessages возвращает сообщения run'а.
func (c *Client) ListMessages(runID string) ([]MessageResponse, error) {
	var messages []MessageResponse
	err := c.list("/api/v1/runs/"+runID+"/messages", nil, &messages)
	return messages, err
}

// AppendMessage добавляет пользовательское сообщение к run'у.
func (c *Client) AppendMessage(runID string, req AppendMessageRequest) (*MessageResponse, error) {
	var msg MessageResponse
	err := c.post("/api/v1/runs/"+runID+"/messages", req, &msg)
	return &msg, err
}

// --- Traces ---

// ListTraces возвращает шаги рассуждений run'а.
func (c *Client) ListTraces(runID string) ([]TraceResponse, error) {
	var traces []TraceResponse
	err := c.list("/api/v1/runs/"+runID+"/traces", nil, &traces)
	return traces, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(lr.Data) == 0 || string(lr.Data) == "null" {
		return nil
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
