package transfer

import "github.com/ethereum/go-ethereum/common"

// Status is the state of the transfer state machine.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusPending    Status = "pending"
	StatusConfirming Status = "confirming"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Busy reports whether a transaction is being prepared or awaited.
func (s Status) Busy() bool {
	return s == StatusPending || s == StatusConfirming
}

// State is a snapshot of the state machine. Error may be set while Idle when
// a request failed validation.
type State struct {
	Status Status      `json:"status"`
	Hash   common.Hash `json:"hash"`
	Error  string      `json:"error,omitempty"`
}
