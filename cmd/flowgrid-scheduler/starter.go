package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// apiStarter запускает execution через HTTP API flowgrid-api.
type apiStarter struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIStarter(baseURL string) *apiStarter {
	return &apiStarter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StartExecution делает POST /api/v1/flows/{id}/executions и
// возвращает ID созданного execution.
func (s *apiStarter) StartExecution(ctx context.Context, flowID uuid.UUID) (uuid.UUID, error) {
	url := fmt.Sprintf("%s/api/v1/flows/%s/executions", s.baseURL, flowID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start execution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var er struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return uuid.Nil, fmt.Errorf("start execution: HTTP %d", resp.StatusCode)
		}
		return uuid.Nil, fmt.Errorf("start execution: %s: %s", er.Error.Code, er.Error.Message)
	}

	var dr struct {
		Data struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return uuid.Nil, fmt.Errorf("decode response: %w", err)
	}

	return dr.Data.ID, nil
}
