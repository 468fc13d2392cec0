package metrics

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"
)

var indexPage = template.Must(template.New("index").Parse(`<html><body><h1>starmatrix</h1><ul>
{{range .}}<li><a href="{{.}}">{{.}}</a></li>
{{end}}</ul></body></html>
`))

// NewMux routes /metrics and the given extra handlers. The root path lists
// every route.
func NewMux(routes map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	paths := []string{"/metrics"}
	mux.Handle("/metrics", Handler())
	for pattern, h := range routes {
		mux.Handle(pattern, h)
		paths = append(paths, pattern)
	}
	slices.Sort(paths)

	mux.HandleFunc("/{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexPage.Execute(w, paths); err != nil {
			slog.Error("rendering index failed", "error", err)
		}
	})
	return mux
}

// StartServer binds port and serves NewMux(routes) in the background. A
// bind failure is returned immediately; the returned function shuts the
// server down.
func StartServer(port int, routes map[string]http.Handler) (func(context.Context) error, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	server := &http.Server{
		Handler:           NewMux(routes),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	log := slog.With("component", "metrics-server", "addr", ln.Addr().String())
	go func() {
		log.Info("metrics server listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return server.Shutdown, nil
}
