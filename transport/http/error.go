package http

import (
	nethttp "net/http"

	"github.com/get402/get402-go/transport"
)

type httpError struct {
	message string
	status  int
	headers nethttp.Header
}

func (err *httpError) Error() string {
	return err.message
}

func (err *httpError) Status() int {
	return err.status
}

func (err *httpError) Headers() nethttp.Header {
	return err.headers
}

func NewHTTPError(message string, status int, headers nethttp.Header) transport.HTTPError {
	return &httpError{message, status, headers}
}
