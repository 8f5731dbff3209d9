// Package validation implements the deployment verification ritual: a
// registry of discrete tests an operator runs before walking away from an
// installation. Tests execute sequentially — several of them read the
// shared config store — and a single-flight guard rejects concurrent runs.
package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/curator-app/agent/internal/autostart"
	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/models"
	"github.com/curator-app/agent/internal/settings"
)

// ErrAlreadyRunning is returned when a validation run is requested while
// another is in progress. Concurrent callers are rejected, not queued.
var ErrAlreadyRunning = errors.New("validation run already in progress")

// Priority ranks how much a failing test should worry the operator.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// TestStatus is the lifecycle state of one test execution.
type TestStatus string

const (
	StatusRunning TestStatus = "running"
	StatusPassed  TestStatus = "passed"
	StatusFailed  TestStatus = "failed"
	StatusWarning TestStatus = "warning"
	StatusError   TestStatus = "error"
)

// Outcome is what a test predicate reports.
type Outcome struct {
	Passed          bool
	Warning         bool
	Message         string
	Details         map[string]interface{}
	Recommendations []string
}

// Filter selects a subset of the registry. All fields are optional and
// intersect when combined.
type Filter struct {
	Categories []string
	Priorities []Priority
	IDs        []string
}

func (f Filter) matches(t Test) bool {
	if len(f.Categories) > 0 && !containsString(f.Categories, t.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if len(f.IDs) > 0 && !containsString(f.IDs, t.ID) {
		return false
	}
	return true
}

// Test is one registry entry. Registered at construction; immutable for
// the process lifetime.
type Test struct {
	ID          string
	Name        string
	Category    string
	Priority    Priority
	Description string
	Run         func(ctx context.Context, f Filter) (Outcome, error)
}

// Result is the recorded execution of one test.
type Result struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Category        string                 `json:"category"`
	Priority        Priority               `json:"priority"`
	Status          TestStatus             `json:"status"`
	Passed          bool                   `json:"passed"`
	Message         string                 `json:"message"`
	Details         map[string]interface{} `json:"details,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
	Duration        time.Duration          `json:"duration"`
}

// SnapshotSource is the read-only view of the monitor the tests consume.
type SnapshotSource interface {
	CurrentSnapshot() *models.Snapshot
}

// Deps are the collaborators the built-in tests draw on.
type Deps struct {
	Snapshots SnapshotSource
	Store     *config.Store
	Settings  settings.Verifier
	Autostart []autostart.Manager
}

// Runner executes registered validation tests. idle → running → idle;
// the transition back to idle is guaranteed even when a test panics.
type Runner struct {
	logger *zap.Logger
	deps   Deps
	tests  []Test

	mu      sync.Mutex
	running bool
	results []Result
}

// NewRunner creates a Runner with the built-in test registry.
func NewRunner(deps Deps, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{logger: logger, deps: deps}
	r.tests = r.builtinTests()
	return r
}

// Register adds a test to the registry. Intended for construction time;
// calling it during a run is not supported.
func (r *Runner) Register(t Test) {
	r.tests = append(r.tests, t)
}

// AvailableTests returns a copy of the registry.
func (r *Runner) AvailableTests() []Test {
	out := make([]Test, len(r.tests))
	copy(out, r.tests)
	return out
}

// RunFull executes the tests selected by the filter sequentially and
// returns their results. Fails fast with ErrAlreadyRunning if a run is in
// progress; the prior run's results are left intact in that case.
func (r *Runner) RunFull(ctx context.Context, f Filter) ([]Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.results = nil
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	selected := make([]Test, 0, len(r.tests))
	for _, t := range r.tests {
		if f.matches(t) {
			selected = append(selected, t)
		}
	}

	r.logger.Info("Validation run started", zap.Int("tests", len(selected)))

	for _, t := range selected {
		result := r.execute(ctx, t, f)
		r.mu.Lock()
		r.results = append(r.results, result)
		r.mu.Unlock()

		r.logger.Info("Validation test finished",
			zap.String("id", result.ID),
			zap.String("status", string(result.Status)),
			zap.Duration("duration", result.Duration))
	}

	return r.Results(), nil
}

// execute runs one test, converting panics and errors into an error
// result so the remaining tests still run.
func (r *Runner) execute(ctx context.Context, t Test, f Filter) (result Result) {
	result = Result{
		ID:        t.ID,
		Name:      t.Name,
		Category:  t.Category,
		Priority:  t.Priority,
		Status:    StatusRunning,
		StartTime: time.Now().UTC(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			result.Status = StatusError
			result.Passed = false
			result.Message = fmt.Sprintf("Test %q panicked: %v", t.Name, rec)
		}
		result.EndTime = time.Now().UTC()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	outcome, err := t.Run(ctx, f)
	if err != nil {
		result.Status = StatusError
		result.Passed = false
		result.Message = err.Error()
		return result
	}

	result.Passed = outcome.Passed
	result.Message = outcome.Message
	result.Details = outcome.Details
	result.Recommendations = outcome.Recommendations
	switch {
	case outcome.Warning:
		result.Status = StatusWarning
	case outcome.Passed:
		result.Status = StatusPassed
	default:
		result.Status = StatusFailed
	}
	return result
}

// Results returns a copy of the current results list.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// TestResult returns the recorded result for a test id from the current
// results list.
func (r *Runner) TestResult(id string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// Recommendations aggregates the recommendations of all non-passing
// results, in result order.
func (r *Runner) Recommendations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, res := range r.results {
		if res.Status == StatusPassed {
			continue
		}
		out = append(out, res.Recommendations...)
	}
	return out
}

// Summary aggregates the current results list.
func (r *Runner) Summary() Summary {
	return Summarize(r.Results())
}

func containsString(haystack []string, want string) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

func containsPriority(haystack []Priority, want Priority) bool {
	for _, p := range haystack {
		if p == want {
			return true
		}
	}
	return false
}
