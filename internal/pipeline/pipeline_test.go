package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/docingest/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.IngestReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.IngestReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Fatalf("expected 3 steps, got %d", p.StepCount())
	}

	names := p.StepNames()
	want := []string{"first", "second", "third"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("step %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(_ context.Context, _ *model.IngestReport) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("a"), record("b"), record("c"))

		report := model.NewIngestReport("")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("unexpected order: %v", order)
		}
		if len(report.Steps) != 3 {
			t.Errorf("expected 3 recorded steps, got %v", report.Steps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		errStep := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, _ *model.IngestReport) error {
			return errStep
		}}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		report := model.NewIngestReport("")
		err := p.Execute(context.Background(), report)
		if !errors.Is(err, errStep) {
			t.Fatalf("expected step error, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("step after failure should not run")
		}
		if len(report.Errors) != 1 || report.Errors[0] != "failing: boom" {
			t.Errorf("unexpected errors: %v", report.Errors)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, _ *model.IngestReport) error {
			return errors.New("boom")
		}}
		after := &mockStep{name: "after"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		report := model.NewIngestReport("")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 1 {
			t.Error("step after failure should run")
		}
		if len(report.Errors) != 1 {
			t.Errorf("expected 1 recorded error, got %v", report.Errors)
		}
	})

	t.Run("marks cancelled run as timed out", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(_ context.Context, _ *model.IngestReport) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		report := model.NewIngestReport("")
		err := p.Execute(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !report.TimedOut {
			t.Error("expected TimedOut")
		}
		if second.callCount != 0 {
			t.Error("second step should not run")
		}
	})
}
