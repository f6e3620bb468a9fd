package deye

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"deye-status/internal/domain"
)

// Client calls the DeyeCloud telemetry API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a new API client.
func NewClient(client *http.Client, baseURL string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, baseURL: baseURL}
}

type latestResponse struct {
	Success        bool                        `json:"success"`
	Msg            string                      `json:"msg"`
	DeviceDataList []domain.RawTelemetryRecord `json:"deviceDataList"`
}

// FetchLatest retrieves the latest telemetry for all serial numbers in one
// batched call and returns the records keyed by serial. Serials the
// upstream did not report are simply absent from the map.
//
// The upstream success flag is unreliable: a response that carries a
// deviceDataList is usable regardless of what the flag says.
func (c *Client) FetchLatest(ctx context.Context, token string, deviceSns []string) (map[string]domain.RawTelemetryRecord, error) {
	body, _ := json.Marshal(map[string][]string{"deviceList": deviceSns})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1.0/device/latest", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.UpstreamError{Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	var result latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &domain.UpstreamError{Msg: fmt.Sprintf("decode failed (status %d): %v", resp.StatusCode, err)}
	}

	if result.DeviceDataList == nil && !result.Success {
		msg := result.Msg
		if msg == "" {
			msg = fmt.Sprintf("status %d with no data", resp.StatusCode)
		}
		return nil, &domain.UpstreamError{Msg: "API error: " + msg}
	}

	records := make(map[string]domain.RawTelemetryRecord, len(result.DeviceDataList))
	for _, rec := range result.DeviceDataList {
		if rec.DeviceSn != "" {
			records[rec.DeviceSn] = rec
		}
	}
	return records, nil
}
