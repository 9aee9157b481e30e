package store

import "fmt"

// ConnectionError reports a destination that could not be opened or reached.
type ConnectionError struct {
	Destination string
	Location    string
	Err         error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open %s destination at %s: %v", e.Destination, e.Location, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// WriteError reports a load that was rolled back. Stage names the step that failed.
type WriteError struct {
	Stage string
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("load %s %s: %v", e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Stage, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
