package models

// Task states reported by the relay service that end a task without success
const (
	TaskStateExecReverted = "ExecReverted"
	TaskStateCancelled    = "Cancelled"
)

// RelayTask is the handle returned by the relay service for a submitted meta-transaction
type RelayTask struct {
	TaskID string `json:"taskId"`
}

// TaskStatus is a snapshot of a relay task, fetched fresh on each poll
type TaskStatus struct {
	TransactionHash  *string `json:"transactionHash,omitempty"`
	TaskState        string  `json:"taskState,omitempty"`
	LastCheckMessage string  `json:"lastCheckMessage,omitempty"`
}

// HasHash reports whether the relay assigned a transaction hash
func (s TaskStatus) HasHash() bool {
	return s.TransactionHash != nil && *s.TransactionHash != ""
}

// Hash returns the transaction hash or an empty string
func (s TaskStatus) Hash() string {
	if s.TransactionHash == nil {
		return ""
	}
	return *s.TransactionHash
}
