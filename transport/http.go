package transport

import (
	"io"
	"net/http"
)

type HTTPRequest interface {
	Method() string
	// Path is resolved relative to the channel's endpoint.
	Path() string
	Headers() http.Header
	Body() io.Reader
}

type HTTPResponse interface {
	Status() int
	Headers() http.Header
	Body() io.ReadCloser
}

type HTTPError interface {
	error
	Status() int
	Headers() http.Header
}
