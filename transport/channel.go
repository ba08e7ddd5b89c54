package transport

import "context"

// Channel delivers a request to the metering service and returns its
// response. Responses are returned for every status the service produced;
// interpreting the status is the caller's concern. A Channel only errors when
// no response was obtained at all.
type Channel interface {
	Request(ctx context.Context, request HTTPRequest) (HTTPResponse, error)
}
