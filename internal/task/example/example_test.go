package example_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
	"github.com/spachava753/pipetask/internal/task/example"
)

func TestScaleTask(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Open()
	defer repo.Close()

	for visit, v := range []int{5, 7} {
		ref := models.DatasetRef{DatasetType: "raw", DataID: models.DataID{"visit": visit, "ccd": 0}}
		if err := repo.Put(ctx, ref, v); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	cfg := example.DefaultScaleConfig()
	cfg.Factor = 2
	cfg.Offset = 1
	inst, _ := example.NewScaleTask(cfg)
	st := inst.(task.PipelineTask)

	// Empty pool falls back to the repository.
	quanta, err := st.DefineQuanta(ctx, models.DatasetPool{}, models.DatasetPool{}, repo)
	if err != nil {
		t.Fatalf("DefineQuanta failed: %v", err)
	}
	if len(quanta) != 2 {
		t.Fatalf("expected 2 quanta, got %d", len(quanta))
	}
	if quanta[0].Director != "raw" {
		t.Errorf("expected director raw, got %q", quanta[0].Director)
	}

	got, err := st.RunQuantum(ctx, quanta[1], repo)
	if err != nil {
		t.Fatalf("RunQuantum failed: %v", err)
	}
	if got != 15.0 {
		t.Errorf("expected 15, got %v", got)
	}
	stored, err := repo.Get(ctx, models.DatasetRef{DatasetType: "calexp", DataID: models.DataID{"visit": 1, "ccd": 0}})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored != 15.0 {
		t.Errorf("expected stored 15, got %v", stored)
	}
}

func TestScaleTaskBackward(t *testing.T) {
	inst, _ := example.NewScaleTask(example.DefaultScaleConfig())
	st := inst.(task.PipelineTask)

	outputs := models.DatasetPool{"calexp": {{"visit": 3, "ccd": 1}}}
	quanta, err := st.DefineQuanta(context.Background(), models.DatasetPool{}, outputs, nil)
	if err != nil {
		t.Fatalf("DefineQuanta failed: %v", err)
	}
	if len(quanta) != 1 {
		t.Fatalf("expected 1 quantum, got %d", len(quanta))
	}
	if quanta[0].Director != "calexp" {
		t.Errorf("expected director calexp, got %q", quanta[0].Director)
	}
	if !quanta[0].Inputs["raw"][0].Equal(models.DataID{"visit": 3, "ccd": 1}) {
		t.Errorf("unexpected input id %v", quanta[0].Inputs["raw"][0])
	}
}

func TestScaleTaskBackwardOtherOutputs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Open()
	defer repo.Close()
	repo.Put(ctx, models.DatasetRef{DatasetType: "raw", DataID: models.DataID{"visit": 1, "ccd": 0}}, 1.0)

	inst, _ := example.NewScaleTask(example.DefaultScaleConfig())
	st := inst.(task.PipelineTask)

	quanta, err := st.DefineQuanta(ctx, models.DatasetPool{}, models.DatasetPool{"coadd": {{"visit": 1}}}, repo)
	if err != nil {
		t.Fatalf("DefineQuanta failed: %v", err)
	}
	if len(quanta) != 0 {
		t.Errorf("expected no quanta when calexp is not requested, got %d", len(quanta))
	}
}

func TestSumTaskBackwardFromSource(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Open()
	defer repo.Close()
	for _, id := range []models.DataID{
		{"visit": 1, "ccd": 0, "exposure": 30},
		{"visit": 1, "ccd": 1, "exposure": 30},
		{"visit": 2, "ccd": 0, "exposure": 30},
	} {
		repo.Put(ctx, models.DatasetRef{DatasetType: "raw", DataID: id}, 1.0)
	}

	inst, _ := example.NewSumTask(example.DefaultSumConfig())
	st := inst.(task.PipelineTask)

	quanta, err := st.DefineQuanta(ctx, models.DatasetPool{}, models.DatasetPool{"visitSum": {{"visit": 1}}}, repo)
	if err != nil {
		t.Fatalf("DefineQuanta failed: %v", err)
	}
	if len(quanta) != 1 {
		t.Fatalf("expected 1 quantum, got %d", len(quanta))
	}
	var got []string
	for _, id := range quanta[0].Inputs["calexp"] {
		got = append(got, id.String())
	}
	sort.Strings(got)
	if diff := cmp.Diff([]string{"ccd=0,visit=1", "ccd=1,visit=1"}, got); diff != "" {
		t.Errorf("unexpected calexp inputs (-want +got):\n%s", diff)
	}
}

func TestSumTask(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Open()
	defer repo.Close()

	pool := models.DatasetPool{"calexp": {
		{"visit": 1, "ccd": 0},
		{"visit": 2, "ccd": 0},
		{"visit": 1, "ccd": 1},
	}}
	for i, id := range pool["calexp"] {
		repo.Put(ctx, models.DatasetRef{DatasetType: "calexp", DataID: id}, float64(i+1))
	}

	inst, _ := example.NewSumTask(example.DefaultSumConfig())
	st := inst.(task.PipelineTask)

	quanta, err := st.DefineQuanta(ctx, pool, models.DatasetPool{}, repo)
	if err != nil {
		t.Fatalf("DefineQuanta failed: %v", err)
	}
	if len(quanta) != 2 {
		t.Fatalf("expected 2 quanta, got %d", len(quanta))
	}
	if n := len(quanta[0].Inputs["calexp"]); n != 2 {
		t.Errorf("expected visit 1 quantum to have 2 inputs, got %d", n)
	}

	got, err := st.RunQuantum(ctx, quanta[0], repo)
	if err != nil {
		t.Fatalf("RunQuantum failed: %v", err)
	}
	if got != 4.0 {
		t.Errorf("expected sum 4, got %v", got)
	}

	backward, err := st.DefineQuanta(ctx, models.DatasetPool{}, models.DatasetPool{"visitSum": {{"visit": 2}}}, repo)
	if err != nil {
		t.Fatalf("DefineQuanta backward failed: %v", err)
	}
	if len(backward) != 1 || len(backward[0].Inputs["calexp"]) != 1 {
		t.Errorf("expected one backward quantum with one input, got %+v", backward)
	}
}

func TestRegister(t *testing.T) {
	reg := task.NewRegistry()
	if err := example.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	for name, want := range map[string]task.Kind{
		"ScaleTask": task.KindPipeline,
		"SumTask":   task.KindPipeline,
		"EchoTask":  task.KindLegacy,
	} {
		c, err := reg.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", name, err)
		}
		if c.Kind != want || task.Classify(mustNew(t, c)) != want {
			t.Errorf("%s: expected kind %s, got %s", name, want, c.Kind)
		}
	}
}

func mustNew(t *testing.T, c *task.Class) any {
	t.Helper()
	inst, err := c.New(c.NewConfig())
	if err != nil {
		t.Fatalf("creating %s: %v", c.Name, err)
	}
	return inst
}
