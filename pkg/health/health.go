// Package health probes the external dependencies a run may touch (archive,
// Redis, PostgreSQL, Kafka, output directory) concurrently and reports an
// aggregate status. The consumer exposes it over HTTP; the CLI prints it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"
)

// Status represents the health state of a dependency or of the whole set.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// FromPing adapts a ping function. A ping error marks the dependency down,
// or degraded when optional is set.
func FromPing(ping func(ctx context.Context) error, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// WritableDir checks that dir exists, or can be created, and accepts files.
func WritableDir(dir string) Check {
	return FromPing(func(context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return err
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}, false)
}

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

type namedCheck struct {
	name  string
	check Check
}

// Checker runs registered checks concurrently, each under its own timeout.
type Checker struct {
	mu      sync.Mutex
	checks  []namedCheck
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates an empty Checker. A non-positive timeout leaves checks
// bounded only by the caller's context.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds a named check, replacing any check with the same name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].check = check
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// severity orders statuses from best to worst.
func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Run executes every check and reports the worst component status. No
// checks means up.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := slices.Clone(c.checks)
	c.mu.Unlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i, nc := range checks {
		wg.Go(func() {
			results[i] = c.probe(ctx, nc.check)
		})
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, nc := range checks {
		res := results[i]
		report.Components[nc.name] = res
		if res.Status.severity() > report.Status.severity() {
			report.Status = res.Status
		}
		if res.Status != StatusUp {
			c.logger.Warn("dependency unhealthy", "name", nc.name, "status", res.Status, "message", res.Message)
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, check Check) ComponentHealth {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	res := check(ctx)
	res.Latency = time.Since(start).Round(time.Millisecond).String()
	return res
}

// Write prints the report as aligned text, one component per line in name
// order.
func (r Report) Write(w io.Writer) error {
	names := slices.Sorted(maps.Keys(r.Components))
	if _, err := fmt.Fprintf(w, "status: %s\n", r.Status); err != nil {
		return err
	}
	for _, name := range names {
		comp := r.Components[name]
		line := fmt.Sprintf("  %-10s %-9s %s", name, comp.Status, comp.Latency)
		if comp.Message != "" {
			line += "  " + comp.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("health response not written", "error", err)
	}
}

// LiveHandler reports that the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler runs the checks and answers 503 only when a required
// component is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}
