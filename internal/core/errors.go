package core

import (
	"errors"
	"fmt"
)

// Role names which side of an import a store plays
type Role string

const (
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

var (
	ErrAuth          = errors.New("wrong password or keyfile")
	ErrIntegrity     = errors.New("integrity check failed")
	ErrWrite         = errors.New("failed to write store")
	ErrStructure     = errors.New("malformed group tree")
	ErrGroupNotFound = errors.New("target group not found")
	ErrStoreClosed   = errors.New("store already closed")
)

// StoreError ties a failure to the store it happened on
type StoreError struct {
	Role Role
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("store %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s store %s: %v", e.Role, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(path string, err error) error {
	return &StoreError{Path: path, Err: err}
}

// withRole stamps role onto a StoreError, or wraps err in a new one.
func withRole(err error, role Role, path string) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		se.Role = role
		return err
	}
	return &StoreError{Role: role, Path: path, Err: err}
}
