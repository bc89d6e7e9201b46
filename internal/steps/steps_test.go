package steps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/monitor"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

// Helpers

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (c *captureNotifier) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureNotifier) byEvent(event string) []notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Message
	for _, m := range c.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func fastMonitor() monitor.Config {
	return monitor.Config{Interval: time.Millisecond, MaxWait: 10 * time.Millisecond}
}

func runContext(target string) *pipeline.RunContext {
	return pipeline.NewRunContext(map[string]any{InputTarget: target})
}

func build(t *testing.T, kind Kind, def Definition, deps Deps) pipeline.Action {
	t.Helper()
	action, err := kind.Build(def, deps)
	if err != nil {
		t.Fatalf("build %s: %v", kind.Type(), err)
	}
	return action
}

// Registry Tests

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if len(r.Types()) != 0 {
		t.Errorf("expected empty registry")
	}

	r.Register(NewDelayKind())
	kind, err := r.Get("delay")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if kind.Type() != StepTypeDelay {
		t.Errorf("expected delay, got %s", kind.Type())
	}

	_, err = r.Get("unknown")
	if !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}
	if r.Has("unknown") {
		t.Error("should not have unknown")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	expected := []string{"delay", "http", "migrate", "monitor", "notify", "validate"}
	types := r.Types()
	if len(types) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("type %d: expected %s, got %s", i, expected[i], types[i])
		}
	}
}

func TestRegistry_BuildDefault(t *testing.T) {
	deps := Deps{
		Backend:  backend.NewSimulated(backend.SimulatedConfig{}),
		Notifier: &captureNotifier{},
		Monitor:  fastMonitor(),
	}

	built, err := DefaultRegistry().Build(DefaultDefinitions(), deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := []struct {
		name     string
		required bool
	}{
		{"validate", true},
		{"migrate", true},
		{"monitor", false},
		{"notify", false},
	}
	if len(built) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(built))
	}
	for i, w := range want {
		if built[i].Name != w.name || built[i].Required != w.required {
			t.Errorf("step %d: expected %s/%v, got %s/%v", i, w.name, w.required, built[i].Name, built[i].Required)
		}
	}
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Build([]Definition{{Name: "x", Type: "teleport"}}, Deps{})
	if !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}

	_, err = r.Build([]Definition{{Name: "migrate"}}, Deps{})
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}

	_, err = r.Build([]Definition{{Name: "wait", Type: "delay"}}, Deps{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// Validate Tests

func TestValidate(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	ctx := context.Background()

	action := build(t, NewValidateKind(), Definition{Name: "validate"}, Deps{Backend: sim})

	out := action.Execute(ctx, runContext("task-1"))
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	res := out.Payload().(ValidateResult)
	if !res.Probed || res.Status != domain.TaskStatusPending {
		t.Errorf("unexpected result %+v", res)
	}

	out = action.Execute(ctx, pipeline.NewRunContext(nil))
	if !errors.Is(out.Err(), ErrValidation) {
		t.Errorf("expected ErrValidation for missing target, got %v", out.Err())
	}
}

func TestValidate_SimulateSkipsProbe(t *testing.T) {
	action := build(t, NewValidateKind(), Definition{
		Name:   "validate",
		Config: map[string]any{"require_inputs": []any{"source"}},
	}, Deps{Simulate: true})

	out := action.Execute(context.Background(), runContext("task-1"))
	if !errors.Is(out.Err(), ErrValidation) {
		t.Errorf("expected missing input failure, got %v", out.Err())
	}

	rc := pipeline.NewRunContext(map[string]any{InputTarget: "task-1", "source": "db1"})
	out = action.Execute(context.Background(), rc)
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	if out.Payload().(ValidateResult).Probed {
		t.Error("simulate mode must not probe backend")
	}
}

// Migrate Tests

func TestMigrate_Start(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	action := build(t, NewMigrateKind(), Definition{Name: "migrate"}, Deps{Backend: sim})

	out := action.Execute(context.Background(), runContext("task-1"))
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	res := out.Payload().(MigrateResult)
	if res.AlreadyRunning || res.Handle.Ref != "task-1" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestMigrate_AlreadyRunning(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	sim.SetStatus("task-1", domain.TaskStatusRunning, 40)

	action := build(t, NewMigrateKind(), Definition{Name: "migrate"}, Deps{Backend: sim})
	out := action.Execute(context.Background(), runContext("task-1"))
	if !out.IsSuccess() {
		t.Fatalf("expected success for running task, got %v", out.Err())
	}
	if !out.Payload().(MigrateResult).AlreadyRunning {
		t.Error("expected AlreadyRunning")
	}

	strict := build(t, NewMigrateKind(), Definition{
		Name:   "migrate",
		Config: map[string]any{"accept_running": false},
	}, Deps{Backend: sim})
	out = strict.Execute(context.Background(), runContext("task-1"))
	if !backend.IsInvalidState(out.Err()) {
		t.Errorf("expected INVALID_STATE, got %v", out.Err())
	}
}

func TestMigrate_BackendFailure(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{FailStarts: 1})
	action := build(t, NewMigrateKind(), Definition{Name: "migrate"}, Deps{Backend: sim})

	out := action.Execute(context.Background(), runContext("task-1"))
	if backend.Code(out.Err()) != backend.CodeUnavailable {
		t.Errorf("expected UNAVAILABLE, got %v", out.Err())
	}

	// Retry с нуля проходит.
	out = action.Execute(context.Background(), runContext("task-1"))
	if !out.IsSuccess() {
		t.Errorf("expected success on second call, got %v", out.Err())
	}
}

// Monitor Tests

func TestMonitor(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	ctx := context.Background()
	if _, err := sim.Start(ctx, "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	action := build(t, NewMonitorKind(), Definition{Name: "monitor"}, Deps{Backend: sim, Monitor: fastMonitor()})
	out := action.Execute(ctx, runContext("task-1"))
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	rep := out.Payload().(monitor.Report)
	if rep.Attempts != 2 || rep.Task.Status != domain.TaskStatusRunning {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestMonitor_Timeout(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{
		Transitions: []domain.TaskStatus{domain.TaskStatusStarting},
	})
	ctx := context.Background()
	if _, err := sim.Start(ctx, "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	def := Definition{Name: "monitor", Config: map[string]any{"max_attempts": 3}}
	action := build(t, NewMonitorKind(), def, Deps{Backend: sim, Monitor: fastMonitor()})

	out := action.Execute(ctx, runContext("task-1"))
	if !errors.Is(out.Err(), monitor.ErrTimeout) {
		t.Errorf("expected timeout, got %v", out.Err())
	}

	def.Config["accept_timeout"] = true
	lenient := build(t, NewMonitorKind(), def, Deps{Backend: sim, Monitor: fastMonitor()})
	out = lenient.Execute(ctx, runContext("task-1"))
	if !out.IsSuccess() {
		t.Errorf("expected accepted timeout, got %v", out.Err())
	}
}

func TestMonitor_InvalidInterval(t *testing.T) {
	_, err := NewMonitorKind().Build(Definition{
		Name:   "monitor",
		Config: map[string]any{"interval": "soon"},
	}, Deps{Backend: backend.NewSimulated(backend.SimulatedConfig{})})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// Notify Tests

func TestNotify_Summary(t *testing.T) {
	n := &captureNotifier{}
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	deps := Deps{Backend: sim, Notifier: n, Monitor: fastMonitor()}

	built, err := DefaultRegistry().Build(DefaultDefinitions(), deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	orch, err := pipeline.Configure(built, pipeline.Config{RetryBackoff: -1})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}

	res, err := orch.Run(context.Background(), runContext("task-1"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success || len(res.Steps) != 4 || len(res.Warnings) != 0 {
		t.Fatalf("unexpected result: success=%v steps=%d warnings=%v errors=%v",
			res.Success, len(res.Steps), res.Warnings, res.Errors)
	}

	msgs := n.byEvent(notify.EventMigrationStatus)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 status message, got %d", len(msgs))
	}
	if msgs[0].Fields["status"] != domain.TaskStatusRunning {
		t.Errorf("expected running status in summary, got %v", msgs[0].Fields["status"])
	}
	if msgs[0].ExecutionID != res.ExecutionID.String() {
		t.Errorf("expected execution id %s, got %s", res.ExecutionID, msgs[0].ExecutionID)
	}
}

func TestNotify_StatusOfOwnTarget(t *testing.T) {
	report := func(ref string, progress int) pipeline.Action {
		return pipeline.ActionFunc(func(context.Context, *pipeline.RunContext) pipeline.Outcome {
			return pipeline.Success(monitor.Report{
				Outcome: monitor.OutcomeRunning,
				Task:    domain.Task{Ref: ref, Status: domain.TaskStatusRunning, ProgressPercent: progress},
			})
		})
	}

	// Повторы нужны, чтобы порядок обхода map не влиял на результат.
	for range 30 {
		n := &captureNotifier{}
		notifyAction := build(t, NewNotifyKind(), Definition{
			Name:   "notify",
			Config: map[string]any{"target": "b"},
		}, Deps{Notifier: n})

		orch, err := pipeline.Configure([]pipeline.Step{
			pipeline.Optional("monitor-b-early", report("b", 10)),
			pipeline.Optional("monitor-b", report("b", 35)),
			pipeline.Optional("monitor-a", report("a", 100)),
			pipeline.Optional("notify", notifyAction),
		}, pipeline.Config{RetryBackoff: -1})
		if err != nil {
			t.Fatalf("configure: %v", err)
		}

		if _, err := orch.Run(context.Background(), runContext("a")); err != nil {
			t.Fatalf("run: %v", err)
		}

		msgs := n.byEvent(notify.EventMigrationStatus)
		if len(msgs) != 1 {
			t.Fatalf("expected 1 status message, got %d", len(msgs))
		}
		if got := msgs[0].Fields["progress_percent"]; got != 35 {
			t.Fatalf("expected progress of target b (35), got %v; body %q", got, msgs[0].Body)
		}
		steps, _ := msgs[0].Fields["completed_steps"].([]string)
		if len(steps) != 3 || steps[0] != "monitor-b-early" || steps[2] != "monitor-a" {
			t.Fatalf("expected steps in execution order, got %v", steps)
		}
	}
}

func TestNotify_StatusFromStartWhenNotMonitored(t *testing.T) {
	n := &captureNotifier{}
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	deps := Deps{Backend: sim, Notifier: n}

	built, err := DefaultRegistry().Build([]Definition{
		{Name: "migrate", Type: StepTypeMigrate, Required: true},
		{Name: "notify", Type: StepTypeNotify},
	}, deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	orch, err := pipeline.Configure(built, pipeline.Config{RetryBackoff: -1})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := orch.Run(context.Background(), runContext("task-1")); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := n.byEvent(notify.EventMigrationStatus)
	if len(msgs) != 1 || msgs[0].Fields["status"] != domain.TaskStatusStarting {
		t.Fatalf("expected starting status from start handle, got %+v", msgs)
	}
}

// Delay Tests

func TestDelay(t *testing.T) {
	action := build(t, NewDelayKind(), Definition{
		Name:   "wait",
		Config: map[string]any{"duration_ms": 5},
	}, Deps{})

	out := action.Execute(context.Background(), pipeline.NewRunContext(nil))
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	long := build(t, NewDelayKind(), Definition{
		Name:   "wait",
		Config: map[string]any{"duration": "1h"},
	}, Deps{})
	out = long.Execute(ctx, pipeline.NewRunContext(nil))
	if !errors.Is(out.Err(), ErrStepCancelled) {
		t.Errorf("expected ErrStepCancelled, got %v", out.Err())
	}
}

// HTTP Tests

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ok := build(t, NewHTTPKind(), Definition{
		Name: "probe",
		Config: map[string]any{
			"url":     srv.URL,
			"headers": map[string]any{"X-Token": "secret"},
		},
	}, Deps{})
	out := ok.Execute(context.Background(), pipeline.NewRunContext(nil))
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %v", out.Err())
	}
	if res := out.Payload().(HTTPResult); res.StatusCode != 200 || res.Body != "ok" {
		t.Errorf("unexpected result %+v", res)
	}

	denied := build(t, NewHTTPKind(), Definition{
		Name:   "probe",
		Config: map[string]any{"url": srv.URL},
	}, Deps{})
	out = denied.Execute(context.Background(), pipeline.NewRunContext(nil))
	var httpErr *HTTPError
	if !errors.As(out.Err(), &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 HTTPError, got %v", out.Err())
	}

	if _, err := NewHTTPKind().Build(Definition{Name: "probe"}, Deps{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without url, got %v", err)
	}
}
