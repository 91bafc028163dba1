package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fugjoo/pigeon-scanner/internal/config"
)

const defaultRunnerURL = "http://localhost:8500"

// Model runs the forward pass of the pretrained convolutional network.
// Load is expensive (weights are read into memory by the runner) and is
// called at most once per process by the Extractor.
type Model interface {
	Load(ctx context.Context) error
	Infer(ctx context.Context, pixels []float32) ([]float32, error)
}

// RunnerClient talks to the model runner that hosts the MobileNet weights.
type RunnerClient struct {
	baseURL string
	model   config.ModelConfig
	client  *http.Client
}

// NewRunnerClient creates a client for the given model runner URL.
func NewRunnerClient(baseURL string, model config.ModelConfig) *RunnerClient {
	if baseURL == "" {
		baseURL = defaultRunnerURL
	}
	return &RunnerClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// loadRequest asks the runner to pull the model weights into memory.
type loadRequest struct {
	Name            string  `json:"name"`
	Version         int     `json:"version"`
	WidthMultiplier float64 `json:"width_multiplier"`
}

// inferRequest carries the preprocessed input tensor.
type inferRequest struct {
	Inputs []float32 `json:"inputs"`
	Shape  []int     `json:"shape"`
}

// inferResponse is the runner's answer to an inference call.
type inferResponse struct {
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
	Model     string    `json:"model"`
}

// Load asks the runner to load the model weights. This can take tens of
// seconds on a cold runner, so no client-side timeout is imposed here;
// callers wrap the context if they need one.
func (c *RunnerClient) Load(ctx context.Context) error {
	body, err := c.postJSON(ctx, "/v1/models/load", loadRequest{
		Name:            c.model.Name,
		Version:         c.model.Version,
		WidthMultiplier: c.model.WidthMultiplier,
	})
	if err != nil {
		return fmt.Errorf("loading model %q: %w", c.model.Name, err)
	}

	var status struct {
		Loaded bool   `json:"loaded"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("failed to parse load response: %w", err)
	}
	if !status.Loaded {
		if status.Error != "" {
			return errors.New(status.Error)
		}
		return errors.New("model runner did not load the model")
	}
	return nil
}

// Infer runs a forward pass. The pixels slice is the flattened
// [1, size, size, 3] input tensor produced by Preprocess.
func (c *RunnerClient) Infer(ctx context.Context, pixels []float32) ([]float32, error) {
	size := c.model.InputSize
	body, err := c.postJSON(ctx, "/v1/infer", inferRequest{
		Inputs: pixels,
		Shape:  []int{1, size, size, 3},
	})
	if err != nil {
		return nil, err
	}

	var resp inferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return resp.Embedding, nil
}

// postJSON posts a JSON body to the given endpoint and returns the raw response.
func (c *RunnerClient) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runner error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// WaitReady polls the runner's health endpoint until it responds or the
// context is canceled. Used by the serve command at startup.
func (c *RunnerClient) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
