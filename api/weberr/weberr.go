// Package weberr decorates errors with behaviors the error middleware
// looks for: an http response to send and structured fields to log. The
// decorated error stays on the chain for errors.Is and errors.As.
package weberr

// Opt adds one behavior to an error.
type Opt func(error) error

// Wrap applies the given behaviors to err in order.
func Wrap(err error, opts ...Opt) error {
	for _, o := range opts {
		err = o(err)
	}
	return err
}

// WithResponse attaches the body and status the client should receive.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches structured fields for the request logger.
func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}
