package http

import (
	"fmt"

	"github.com/gorilla/mux"
)

// ImplementsServer checks that a router has a handler for every route
// of NewAPIRouter. The client builds its requests from those route
// names, so a router passing this check serves everything the client
// can ask for.
func ImplementsServer(router *mux.Router) error {
	return NewAPIRouter().Walk(func(r *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		route := router.Get(r.GetName())
		if route == nil {
			return fmt.Errorf("no route by name %q in router", r.GetName())
		}
		if route.GetHandler() == nil {
			return fmt.Errorf("no handler for route %q in router", r.GetName())
		}
		return nil
	})
}
