package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const checkTimeout = 5 * time.Second

// HealthChecker is a dependency the service needs to serve analyses.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings the record database.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
	Failing   []string               `json:"failing,omitempty"`
}

type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// runChecks runs every checker concurrently and returns per-check results plus the
// sorted names of those that failed.
func runChecks(ctx context.Context, checkers map[string]HealthChecker) (map[string]CheckStatus, []string) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckStatus, len(checkers))
		failing []string
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			st := CheckStatus{Status: "healthy"}
			if err := checker.Check(ctx); err != nil {
				st = CheckStatus{Status: "unhealthy", Message: err.Error()}
			}
			mu.Lock()
			results[name] = st
			if st.Status != "healthy" {
				failing = append(failing, name)
			}
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()
	sort.Strings(failing)
	return results, failing
}

func writeStatus(w http.ResponseWriter, ok bool, body HealthStatus) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthHandler reports every dependency with its error message; 503 if any fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, failing := runChecks(r.Context(), checkers)
		body := HealthStatus{Status: "healthy", Timestamp: time.Now().UTC(), Checks: results}
		if len(failing) > 0 {
			body.Status = "unhealthy"
		}
		writeStatus(w, len(failing) == 0, body)
	}
}

// ReadinessHandler tells a load balancer whether uploads can be accepted: the same
// dependency checks, answered with only the names of the failing ones.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, failing := runChecks(r.Context(), checkers)
		body := HealthStatus{Status: "ready", Timestamp: time.Now().UTC(), Failing: failing}
		if len(failing) > 0 {
			body.Status = "not ready"
		}
		writeStatus(w, len(failing) == 0, body)
	}
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
