package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Synapse/internal/domain"
)

const (
	defaultExecuteTimeout  = 10 * time.Minute
	defaultRetrieveTimeout = 15 * time.Second
)

// HTTPExecutor — конвейер за внешним HTTP-сервисом.
//
// Execute: POST {base}/v1/pipeline/execute, ответ — Output одним JSON.
// ExecuteStream: POST {base}/v1/pipeline/stream, ответ — поток
// newline-delimited JSON событий, завершающийся событием "output".
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor создаёт HTTPExecutor для сервиса по адресу baseURL.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultExecuteTimeout},
	}
}

// Execute выполняет run одним запросом, без потокового вывода.
func (e *HTTPExecutor) Execute(ctx context.Context, in Input, ev *Events) (*Output, error) {
	resp, err := e.post(ctx, "/v1/pipeline/execute", in)
	if err != nil {
		return nil, NewError(StageExecution, "pipeline request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(StageExecution, "read pipeline response", err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
		return nil, NewError(StageExecution, msg, nil)
	}

	var out Output
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, NewError(StageExecution, "decode pipeline response", err)
	}
	return &out, nil
}

// ExecuteStream выполняет run, разбирая поток событий конвейера.
//
// Каждая строка ответа — JSON с полем "type". Промежуточные события
// транслируются в ev; финальное событие "output" несёт результат.
func (e *HTTPExecutor) ExecuteStream(ctx context.Context, in Input, ev *Events) (*Output, error) {
	resp, err := e.post(ctx, "/v1/pipeline/stream", in)
	if err != nil {
		return nil, NewError(StageStreaming, "pipeline stream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
		return nil, NewError(StageStreaming, msg, nil)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		out, err := e.dispatch(line, ev)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewError(StageStreaming, "read pipeline stream", err)
	}
	return nil, NewError(StageStreaming, "pipeline stream ended without output", nil)
}

// streamEvent — одна строка потока конвейера.
type streamEvent struct {
	Type      string              `json:"type"`
	Progress  int                 `json:"progress,omitempty"`
	Step      string              `json:"step,omitempty"`
	NodeState *NodeUpdate         `json:"node_state,omitempty"`
	Node      map[string]any      `json:"node,omitempty"`
	Edge      map[string]any      `json:"edge,omitempty"`
	Reasoning *ReasoningStep      `json:"reasoning,omitempty"`
	Chunk     *domain.StreamChunk `json:"chunk,omitempty"`
	Output    *Output             `json:"output,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// dispatch разбирает строку потока и транслирует событие в ev.
// Возвращает Output для события "output".
func (e *HTTPExecutor) dispatch(line []byte, ev *Events) (*Output, error) {
	var event streamEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return nil, NewError(StageStreaming, "decode stream event", err)
	}

	switch event.Type {
	case "progress":
		ev.EmitProgress(event.Progress, event.Step)
	case "node_state":
		if event.NodeState != nil {
			ev.EmitNodeState(*event.NodeState)
		}
	case "node_created":
		ev.EmitNodeCreated(event.Node)
	case "edge_created":
		ev.EmitEdgeCreated(event.Edge)
	case "reasoning":
		if event.Reasoning != nil {
			ev.EmitReasoning(*event.Reasoning)
		}
	case "chunk":
		if event.Chunk != nil {
			ev.EmitChunk(*event.Chunk)
		}
	case "output":
		if event.Output == nil {
			return nil, NewError(StageStreaming, "output event without payload", nil)
		}
		return event.Output, nil
	case "error":
		return nil, NewError(StageExecution, event.Error, nil)
	}
	// Неизвестные типы событий пропускаем.
	return nil, nil
}

func (e *HTTPExecutor) post(ctx context.Context, path string, in Input) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return e.client.Do(req)
}

// HTTPRetriever — retrieval за внешним HTTP-сервисом поиска.
type HTTPRetriever struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRetriever создаёт HTTPRetriever для сервиса по адресу baseURL.
func NewHTTPRetriever(baseURL string) *HTTPRetriever {
	return &HTTPRetriever{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRetrieveTimeout},
	}
}

// Retrieve ищет документы workspace'а по prompt'у run'а.
func (r *HTTPRetriever) Retrieve(ctx context.Context, in Input) ([]Document, error) {
	payload, err := json.Marshal(map[string]string{
		"workspace_id": in.WorkspaceID,
		"query":        in.Prompt,
	})
	if err != nil {
		return nil, NewError(StageRetrieval, "marshal query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/retrieval/search", bytes.NewReader(payload))
	if err != nil {
		return nil, NewError(StageRetrieval, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, NewError(StageRetrieval, "retrieval request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(StageRetrieval, "read retrieval response", err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
		return nil, NewError(StageRetrieval, msg, nil)
	}

	var result struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, NewError(StageRetrieval, "decode retrieval response", err)
	}
	return result.Documents, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
