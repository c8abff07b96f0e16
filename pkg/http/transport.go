package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

// NewAPIRouter gives a router with every route of the API, without
// handlers. The server attaches handlers; the client uses it to
// construct URLs.
func NewAPIRouter() *mux.Router {
	r := mux.NewRouter()

	r.NewRoute().Name(Ping).Methods("GET").Path("/ping")
	r.NewRoute().Name(Version).Methods("GET").Path("/version")

	r.NewRoute().Name(GetDiff).Methods("GET").Path("/getOneDiffById/{id}")
	r.NewRoute().Name(InsertDiff).Methods("POST").Path("/insertOneDiff")
	r.NewRoute().Name(LatestDiffs).Methods("POST").Path("/getLatestDiffsFromStacks")
	r.NewRoute().Name(AllDiffs).Methods("POST").Path("/getAllDiffsFromStacks")
	r.NewRoute().Name(Configs).Methods("POST").Path("/getConfigsFromStacks")
	r.NewRoute().Name(ComputeAllDiffs).Methods("POST").Path("/computeAllDiffs")
	r.NewRoute().Name(ToggleReview).Methods("POST").Path("/toggleReview")
	r.NewRoute().Name(CompareDocuments).Methods("POST").Path("/compareDocuments")

	// The fixed paths have to come before /repos/{repo}.
	r.NewRoute().Name(ListRepos).Methods("GET").Path("/repos/list")
	r.NewRoute().Name(CountRepos).Methods("GET").Path("/repos/numberOfRepos")
	r.NewRoute().Name(GetRepo).Methods("GET").Path("/repos/{repo}")
	r.NewRoute().Name(RepoContents).Methods("GET").Path("/repos/{repo}/contents")

	return r
}

// MakeURL constructs the URL for a named route. urlParams are pairs of
// name and value; those named in the route's path fill in the path,
// and the rest go in the query.
func MakeURL(endpoint string, router *mux.Router, routeName string, urlParams ...string) (*url.URL, error) {
	if len(urlParams)%2 != 0 {
		panic("urlParams must be even!")
	}

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint %s", endpoint)
	}
	route := router.Get(routeName)
	if route == nil {
		return nil, errors.New("no route with name " + routeName)
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving route path template %s", routeName)
	}

	var pathParams []string
	v := url.Values{}
	for i := 0; i < len(urlParams); i += 2 {
		if strings.Contains(template, "{"+urlParams[i]+"}") {
			pathParams = append(pathParams, urlParams[i], urlParams[i+1])
			continue
		}
		v.Add(urlParams[i], urlParams[i+1])
	}

	routeURL, err := route.URLPath(pathParams...)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving route path %s", routeName)
	}

	endpointURL.Path = path.Join(endpointURL.Path, routeURL.Path)
	endpointURL.RawQuery = v.Encode()
	return endpointURL, nil
}

func WriteError(w http.ResponseWriter, r *http.Request, code int, err error) {
	// An Accept header with "application/json" is sent by clients
	// understanding how to decode JSON errors. Browsers and curl get
	// the help text.
	if len(r.Header.Get("Accept")) > 0 {
		switch negotiateContentType(r, []string{"application/json", "text/plain"}) {
		case "application/json":
			body, encodeErr := json.Marshal(err)
			if encodeErr != nil {
				w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "Error encoding error response: %s\n\nOriginal error: %s", encodeErr.Error(), err.Error())
				return
			}
			w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "application/json; charset=utf-8")
			w.WriteHeader(code)
			w.Write(body)
			return
		case "text/plain":
			w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
			w.WriteHeader(code)
			switch err := err.(type) {
			case *fluxerr.Error:
				fmt.Fprint(w, err.Help)
			default:
				fmt.Fprint(w, err.Error())
			}
			return
		}
	}
	w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, err.Error())
}

func JSONResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	body, err := json.Marshal(result)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ErrorResponse writes an error with the status code for its type.
// Errors that are not API errors are treated as server errors.
func ErrorResponse(w http.ResponseWriter, r *http.Request, apiError error) {
	var outErr *fluxerr.Error
	var code int
	var ok bool

	err := errors.Cause(apiError)
	if outErr, ok = err.(*fluxerr.Error); !ok {
		outErr = fluxerr.CoverAllError(apiError)
	}
	switch outErr.Type {
	case fluxerr.Missing:
		code = http.StatusNotFound
	case fluxerr.User:
		code = http.StatusUnprocessableEntity
	case fluxerr.Server:
		code = http.StatusInternalServerError
	default:
		code = http.StatusInternalServerError
	}
	WriteError(w, r, code, outErr)
}
