package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
)

type stubConfig struct{}

type pipelineStub struct{}

func (pipelineStub) InputDatasetTypes() []models.DatasetType  { return nil }
func (pipelineStub) OutputDatasetTypes() []models.DatasetType { return nil }
func (pipelineStub) DefineQuanta(ctx context.Context, inputs, outputs models.DatasetPool, repo repository.Repository) ([]*models.Quantum, error) {
	return nil, nil
}
func (pipelineStub) RunQuantum(ctx context.Context, q *models.Quantum, repo repository.Repository) (any, error) {
	return nil, nil
}

type legacyStub struct{}

func (legacyStub) RunDataItem(ctx context.Context, id models.DataID, repo repository.Repository) (any, error) {
	return nil, nil
}

type bothStub struct {
	pipelineStub
	legacyStub
}

func classFor(name string, inst any) task.Class {
	return task.Class{
		Name:      name,
		NewConfig: func() any { return &stubConfig{} },
		New:       func(cfg any) (any, error) { return inst, nil },
	}
}

func TestRegisterClassifiesKind(t *testing.T) {
	tests := []struct {
		name     string
		instance any
		want     task.Kind
	}{
		{name: "pkg.PipelineStub", instance: pipelineStub{}, want: task.KindPipeline},
		{name: "pkg.LegacyStub", instance: legacyStub{}, want: task.KindLegacy},
		{name: "pkg.BothStub", instance: bothStub{}, want: task.KindAmbiguous},
		{name: "pkg.Nothing", instance: struct{}{}, want: task.KindUnknown},
	}

	reg := task.NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(classFor(tt.name, tt.instance)); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			c, err := reg.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if c.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, c.Kind)
			}
		})
	}
}

func TestRegisterExplicitKindWins(t *testing.T) {
	reg := task.NewRegistry()
	c := classFor("pkg.Tagged", pipelineStub{})
	c.Kind = task.KindAmbiguous
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	got, _ := reg.Lookup("pkg.Tagged")
	if got.Kind != task.KindAmbiguous {
		t.Errorf("expected explicit kind to be kept, got %s", got.Kind)
	}
}

func TestResolve(t *testing.T) {
	reg := task.NewRegistry()
	for _, c := range []task.Class{
		classFor("a.Runner", pipelineStub{}),
		classFor("a.Old", legacyStub{}),
		classFor("a.Both", bothStub{}),
		classFor("a.Empty", struct{}{}),
	} {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		wantKind task.Kind
		wantErr  bool
	}{
		{name: "a.Runner", wantKind: task.KindPipeline},
		{name: "Runner", wantKind: task.KindPipeline},
		{name: "Old", wantKind: task.KindLegacy},
		{name: "a.Both", wantErr: true},
		{name: "a.Empty", wantErr: true},
		{name: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := reg.Resolve(tt.name)
			if tt.wantErr {
				var resErr *models.TaskResolutionError
				if !errors.As(err, &resErr) {
					t.Fatalf("expected TaskResolutionError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if c.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, c.Kind)
			}
		})
	}
}

func TestLookupErrors(t *testing.T) {
	reg := task.NewRegistry()
	reg.Register(classFor("x.Task", pipelineStub{}))
	reg.Register(classFor("y.Task", pipelineStub{}))

	if _, err := reg.Lookup("Task"); err == nil {
		t.Error("expected error for ambiguous short name")
	}
	if _, err := reg.Lookup("z.Task"); !errors.Is(err, models.ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
	if err := reg.Register(classFor("x.Task", pipelineStub{})); err == nil {
		t.Error("expected error for duplicate registration")
	}

	reg.Close()
	if _, err := reg.Lookup("x.Task"); !errors.Is(err, task.ErrRegistryClosed) {
		t.Errorf("expected ErrRegistryClosed, got %v", err)
	}
}
