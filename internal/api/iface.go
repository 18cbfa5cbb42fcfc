package api

// ChatAPI defines the interface for the chat completions client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type ChatAPI interface {
	Complete(messages []ChatMessage) (*ChatResponse, error)
	CompleteStream(messages []ChatMessage, cb SnapshotCallback) (string, *Usage, error)
	ListModels() (*ModelListResponse, error)
}
