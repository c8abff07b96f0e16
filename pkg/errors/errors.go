package errors

import (
	"encoding/json"
	"errors"
)

// Error is an error as presented through the API. The Type says whose
// fault it is:
//  - Server: something went wrong on our side, and trying again may help;
//  - Missing: the stack, file or diff asked for does not exist;
//  - User: the request can't be honoured until the caller changes it.
type Error struct {
	Type Type
	// a message that can be printed out for the user
	Help string `json:"help"`
	// the underlying error, e.g., for logging
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

type Type string

const (
	Server  Type = "server"
	Missing Type = "missing"
	User    Type = "user"
)

func IsMissing(err error) bool {
	if err, ok := err.(*Error); ok && err.Type == Missing {
		return true
	}
	return false
}

// NewMissing wraps err as a Missing error, with err's message as the
// help text.
func NewMissing(err error) *Error {
	return &Error{Type: Missing, Help: err.Error(), Err: err}
}

// NewUser wraps err as a User error, with err's message as the help
// text.
func NewUser(err error) *Error {
	return &Error{Type: User, Help: err.Error(), Err: err}
}

func (e *Error) MarshalJSON() ([]byte, error) {
	var errMsg string
	if e.Err != nil {
		errMsg = e.Err.Error()
	}
	jsonable := &struct {
		Type string `json:"type"`
		Help string `json:"help"`
		Err  string `json:"error,omitempty"`
	}{
		Type: string(e.Type),
		Help: e.Help,
		Err:  errMsg,
	}
	return json.Marshal(jsonable)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	jsonable := &struct {
		Type string `json:"type"`
		Help string `json:"help"`
		Err  string `json:"error,omitempty"`
	}{}
	if err := json.Unmarshal(data, &jsonable); err != nil {
		return err
	}
	e.Type = Type(jsonable.Type)
	e.Help = jsonable.Help
	if jsonable.Err != "" {
		e.Err = errors.New(jsonable.Err)
	}
	return nil
}

// CoverAllError gives an error that has no specific help of its own a
// generic help message.
func CoverAllError(err error) *Error {
	return &Error{
		Type: Server,
		Err:  err,
		Help: `Error: ` + err.Error() + `

stackdiff does not have a specific help message for the error above.
If it persists, check the stackdiffd logs around the time of the
request; they include the stack and file being compared.
`,
	}
}
