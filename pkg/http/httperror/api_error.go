package httperror

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response that did not carry an error from
// stackdiffd itself, e.g., one from a proxy in front of it.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (err *APIError) Error() string {
	body := strings.TrimSpace(err.Body)
	if body == "" {
		return err.Status
	}
	return fmt.Sprintf("%s (%s)", err.Status, body)
}

// IsUnavailable says whether the response came from something standing
// in for a stackdiffd that is down or restarting.
func (err *APIError) IsUnavailable() bool {
	switch err.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsMissing says whether the endpoint was not found, which usually
// means the client and stackdiffd are of different versions.
func (err *APIError) IsMissing() bool {
	return err.StatusCode == http.StatusNotFound
}
