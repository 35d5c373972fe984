package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// It never touches a dependency.
func LivenessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, reg.Liveness())
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// This runs the checks marked for readiness.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, reg.Readiness(r.Context()))
	}
}

// DetailedHandler returns an HTTP handler that runs every registered check,
// including those excluded from readiness.
func DetailedHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, reg.Run(r.Context(), false))
	}
}

// SingleCheckHandler returns an HTTP handler for checking a single component.
func SingleCheckHandler(reg *Registry, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ServeCheck(w, r, reg, name)
	}
}

// ServeCheck runs the named check and writes its result. Unknown names
// produce a 404 with a JSON error body.
func ServeCheck(w http.ResponseWriter, r *http.Request, reg *Registry, name string) {
	result, err := reg.Check(r.Context(), name)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrCheckNotFound) {
			code = http.StatusNotFound
		}
		WriteError(w, code, err)
		return
	}
	writeJSON(w, HTTPStatus(result.Status), result)
}

// WriteResponse writes resp as JSON with the status code for its aggregated
// status.
func WriteResponse(w http.ResponseWriter, resp OverallResponse) {
	writeJSON(w, resp.HTTPStatus(), resp)
}

// WriteError writes a JSON error body.
func WriteError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		data = []byte(`{"error":"encoding failed"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RegisterHandlers mounts the health endpoints on mux under prefix:
//
//	GET <prefix>                liveness
//	GET <prefix>/live           liveness
//	GET <prefix>/ready          readiness
//	GET <prefix>/checks         every check
//	GET <prefix>/checks/{name}  one check
func RegisterHandlers(mux *http.ServeMux, reg *Registry, prefix string) {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	live := LivenessHandler(reg)
	if prefix == "" {
		mux.HandleFunc("GET /{$}", live)
	} else {
		mux.HandleFunc("GET "+prefix, live)
	}
	mux.HandleFunc("GET "+prefix+"/live", live)
	mux.HandleFunc("GET "+prefix+"/ready", ReadinessHandler(reg))
	mux.HandleFunc("GET "+prefix+"/checks", DetailedHandler(reg))
	mux.HandleFunc("GET "+prefix+"/checks/{name}", func(w http.ResponseWriter, r *http.Request) {
		ServeCheck(w, r, reg, r.PathValue("name"))
	})
}
