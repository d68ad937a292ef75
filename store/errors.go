package store

import (
	"errors"
	"fmt"
)

// ErrNotReady marks operations invoked after Disconnect or against a store
// whose one-time initialization failed. Match with errors.Is.
var ErrNotReady = errors.New("store: not ready")

// ConnectionError reports a failed session establishment (unreachable host,
// bad credentials). It is fatal: the store stays unusable.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: connect failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProvisioningError reports a table-creation failure other than the benign
// "object already exists" case. Fatal, same consequences as ConnectionError.
type ProvisioningError struct {
	Table string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("store: provisioning %s failed: %v", e.Table, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// ExecutionError reports a single failed statement or command. It is scoped
// to the operation that triggered it and does not invalidate the store.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
