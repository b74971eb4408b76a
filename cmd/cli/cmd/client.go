package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mesplane/pkg/api"
)

// MESClient handles API calls to the mesplane controller.
type MESClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewMESClient creates a new client with the given base URL and token.
func NewMESClient(baseURL, token string) *MESClient {
	return &MESClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends one request and decodes the response into out when the status
// is one of ok.
func (c *MESClient) do(method, path string, body, out any, ok ...int) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	accepted := false
	for _, code := range ok {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		msg := string(respBody)
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ProcessStep sends POST /process-step to start routing one product.
func (c *MESClient) ProcessStep(req api.ProcessStepRequest) (*api.MessageResponse, error) {
	var result api.MessageResponse
	if err := c.do(http.MethodPost, "/process-step", req, &result, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRequest sends GET /requests/{id} to retrieve a request and its reservations.
func (c *MESClient) GetRequest(requestID string) (*api.RequestStatusResponse, error) {
	var result api.RequestStatusResponse
	if err := c.do(http.MethodGet, "/requests/"+requestID, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateSchedule sends POST /schedules to run the batch scheduler remotely.
func (c *MESClient) CreateSchedule(req api.ScheduleRequest) (*api.ScheduleResponse, error) {
	var result api.ScheduleResponse
	if err := c.do(http.MethodPost, "/schedules", req, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMachines sends GET /machines to read the live machine pool.
func (c *MESClient) ListMachines() ([]api.MachineResponse, error) {
	var result []api.MachineResponse
	if err := c.do(http.MethodGet, "/machines", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result, nil
}

func printAPIError(cmd interface{ Printf(string, ...any) }, action string, err error) {
	if apiErr, ok := err.(*APIError); ok {
		cmd.Printf("%s failed (%d): %s\n", action, apiErr.StatusCode, apiErr.Message)
		return
	}
	cmd.Printf("%s failed: %v\n", action, err)
}
