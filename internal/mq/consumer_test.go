package mq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
)

func TestDecodeSnapshot_RoundTrip(t *testing.T) {
	exec := &domain.Execution{
		ID:     uuid.New(),
		FlowID: uuid.New(),
		Status: domain.ExecutionStatusCompleted,
		NodeRuns: map[string]*domain.NodeRun{
			"fetch": {NodeID: "fetch", AgentType: "market_data", Status: domain.NodeStatusSucceeded},
		},
	}

	// Тот же конверт, что собирает PublishExecutionFinished.
	body, err := json.Marshal(&Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionFinished,
		Payload:   ExecutionFinishedPayload{Execution: exec},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodeSnapshot(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != exec.ID {
		t.Errorf("expected execution %s, got %s", exec.ID, got.ID)
	}
	if got.Status != domain.ExecutionStatusCompleted {
		t.Errorf("expected status COMPLETED, got %s", got.Status)
	}
	if nr, ok := got.NodeRuns["fetch"]; !ok || nr.Status != domain.NodeStatusSucceeded {
		t.Errorf("node run lost in transit: %+v", got.NodeRuns)
	}
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"wrong type", `{"id":"m1","type":"something.else","payload":{}}`},
		{"no snapshot", `{"id":"m1","type":"execution.finished","payload":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeSnapshot([]byte(tc.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
