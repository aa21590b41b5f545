package weberr

import "errors"

type responder interface {
	Response() (body any, status int)
}

// Response extracts the client response attached anywhere on err's chain.
func Response(err error) (body any, status int, ok bool) {
	var re responder
	if !errors.As(err, &re) {
		return nil, 0, false
	}

	body, status = re.Response()
	return body, status, true
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Response() (any, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }
