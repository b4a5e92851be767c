package domain

import "errors"

var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrNoTestCases       = errors.New("no test cases provided for execution")
	ErrNotCancellable    = errors.New("execution not found or cannot be cancelled")
)
