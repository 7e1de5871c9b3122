package events

import (
	"encoding/json"
	"testing"
)

func TestFileChangeType_Values(t *testing.T) {
	tests := []struct {
		changeType FileChangeType
		expected   string
	}{
		{FileChangeAdded, "added"},
		{FileChangeModified, "modified"},
		{FileChangeRemoved, "removed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.changeType) != tt.expected {
				t.Errorf("FileChangeType = %s, want %s", tt.changeType, tt.expected)
			}
		})
	}
}

func TestNewFileChangedEvent(t *testing.T) {
	event := NewFileChangedEvent("/srv/data", "/srv/data/file.go", FileChangeModified)

	if event.Type() != EventTypeFileChanged {
		t.Errorf("Type() = %v, want %v", event.Type(), EventTypeFileChanged)
	}
	if event.GetRoot() != "/srv/data" {
		t.Errorf("GetRoot() = %q, want /srv/data", event.GetRoot())
	}

	payload, ok := event.Payload.(FileChangedPayload)
	if !ok {
		t.Fatal("Payload is not FileChangedPayload")
	}

	if payload.Path != "/srv/data/file.go" {
		t.Errorf("Path = %q, want %q", payload.Path, "/srv/data/file.go")
	}
	if payload.Change != FileChangeModified {
		t.Errorf("Change = %v, want %v", payload.Change, FileChangeModified)
	}
}

func TestFileChangedPayload_JSON(t *testing.T) {
	event := NewFileChangedEvent("/srv", "/srv/main.go", FileChangeAdded)

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed struct {
		Event   string `json:"event"`
		Root    string `json:"root"`
		Payload struct {
			Path   string `json:"path"`
			Change string `json:"change"`
		} `json:"payload"`
	}

	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if parsed.Event != "file_changed" {
		t.Errorf("event = %q, want file_changed", parsed.Event)
	}
	if parsed.Root != "/srv" {
		t.Errorf("root = %q, want /srv", parsed.Root)
	}
	if parsed.Payload.Path != "/srv/main.go" {
		t.Errorf("path = %q, want /srv/main.go", parsed.Payload.Path)
	}
	if parsed.Payload.Change != "added" {
		t.Errorf("change = %q, want added", parsed.Payload.Change)
	}
}
