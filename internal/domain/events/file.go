package events

// FileChangeType represents the type of file change.
type FileChangeType string

const (
	FileChangeAdded    FileChangeType = "added"
	FileChangeModified FileChangeType = "modified"
	FileChangeRemoved  FileChangeType = "removed"
)

// FileChangedPayload is the payload for file_changed events.
type FileChangedPayload struct {
	Path   string         `json:"path"`
	Change FileChangeType `json:"change"`
}

// NewFileChangedEvent creates a new file_changed event for the given root.
func NewFileChangedEvent(root, path string, change FileChangeType) *BaseEvent {
	return NewEventWithRoot(EventTypeFileChanged, FileChangedPayload{
		Path:   path,
		Change: change,
	}, root)
}
