package weberr

import "errors"

type fielder interface {
	Fields() map[string]any
}

// Fields extracts the log fields attached anywhere on err's chain.
func Fields(err error) (map[string]any, bool) {
	var fe fielder
	if !errors.As(err, &fe) {
		return nil, false
	}
	return fe.Fields(), true
}

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Fields() map[string]any { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
