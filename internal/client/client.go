package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aiinpocket/n3n/editor/pkg/api"
	"github.com/aiinpocket/n3n/editor/pkg/log"
)

type (
	// ExecutionClient controls remote flow executions. The editor only
	// consumes the engine's control surface and event contract; the
	// engine itself is a separate service
	ExecutionClient interface {
		StartExecution(
			context.Context, api.FlowID, string,
		) (api.ExecutionID, error)
		StopExecution(context.Context, api.ExecutionID) error
		StreamURL(api.ExecutionID) string
	}

	// HTTPClient talks to the execution engine over HTTP, with the event
	// stream exposed as a WebSocket endpoint per execution
	HTTPClient struct {
		httpClient *http.Client
		baseURL    string
	}

	startRequest struct {
		Version string `json:"version,omitempty"`
	}
)

var (
	ErrEngineUnavailable = errors.New("execution engine unavailable")
	ErrEngineRejected    = errors.New("execution engine rejected request")
)

var _ ExecutionClient = (*HTTPClient)(nil)

// NewHTTPClient creates an engine client rooted at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// StartExecution starts a remote execution of the flow's published or
// named version and returns its execution ID
func (c *HTTPClient) StartExecution(
	ctx context.Context, flowID api.FlowID, version string,
) (api.ExecutionID, error) {
	body, err := json.Marshal(startRequest{Version: version})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/flows/%s/executions", c.baseURL, flowID)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to start execution",
			log.FlowID(flowID),
			log.Error(err))
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d: %s",
			ErrEngineRejected, resp.StatusCode, string(respBody))
	}

	var started api.ExecutionStartedResponse
	if err := json.Unmarshal(respBody, &started); err != nil {
		return "", err
	}
	return started.ExecutionID, nil
}

// StopExecution cancels a remote execution
func (c *HTTPClient) StopExecution(
	ctx context.Context, executionID api.ExecutionID,
) error {
	url := fmt.Sprintf("%s/executions/%s", c.baseURL, executionID)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, url, nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to stop execution",
			log.ExecutionID(executionID),
			log.Error(err))
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %d: %s",
			ErrEngineRejected, resp.StatusCode, string(body))
	}
	return nil
}

// StreamURL returns the WebSocket endpoint for an execution's events
func (c *HTTPClient) StreamURL(executionID api.ExecutionID) string {
	ws := strings.Replace(c.baseURL, "http", "ws", 1)
	return fmt.Sprintf("%s/executions/%s/ws", ws, executionID)
}
