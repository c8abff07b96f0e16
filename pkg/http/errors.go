package http

import (
	"errors"

	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

func MakeAPINotFound(path string) *fluxerr.Error {
	return &fluxerr.Error{
		Type: fluxerr.Missing,
		Help: `The API endpoint requested is not supported by this server.

This indicates that your client is either out of date, or faulty.
The endpoints served are listed in the stackdiff README.

If you still have problems, include this path when asking for help:

    ` + path + `
`,
		Err: errors.New("API endpoint not found"),
	}
}

// MakeBadRequest wraps an error decoding a request.
func MakeBadRequest(err error) *fluxerr.Error {
	return &fluxerr.Error{
		Type: fluxerr.User,
		Help: `The request could not be decoded: ` + err.Error() + `

Requests with a body must send JSON with the fields named in the API
documentation, e.g., {"stack_a": "prod", "stack_b": "staging"}.
`,
		Err: err,
	}
}
