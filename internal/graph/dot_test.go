package graph_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spachava753/pipetask/internal/graph"
	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/pipeline"
	"github.com/spachava753/pipetask/internal/plan"
	"github.com/spachava753/pipetask/internal/task"
	"github.com/spachava753/pipetask/internal/task/example"
)

func mustQuantum(t *testing.T, in, out map[string][]models.DataID, director string) *models.Quantum {
	t.Helper()
	q, err := models.NewQuantum(in, out, nil, director)
	if err != nil {
		t.Fatalf("NewQuantum failed: %v", err)
	}
	return q
}

func TestWriteQuantumGraph(t *testing.T) {
	shared := models.DataID{"visit": 1, "ccd": 2}
	steps := []plan.Step{
		{
			TaskName: "example.ScaleTask",
			Label:    "isr",
			Quanta: []*models.Quantum{
				mustQuantum(t,
					map[string][]models.DataID{"raw": {shared}},
					map[string][]models.DataID{"calexp": {shared}},
					"raw"),
			},
		},
		{
			TaskName: "example.SumTask",
			Quanta: []*models.Quantum{
				mustQuantum(t,
					map[string][]models.DataID{"calexp": {{"ccd": 2, "visit": 1}}},
					map[string][]models.DataID{"visitSum": {{"visit": 1}}},
					"visitSum"),
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.WriteQuantumGraph(&buf, steps); err != nil {
		t.Fatalf("WriteQuantumGraph failed: %v", err)
	}

	want := strings.Join([]string{
		`digraph QuantumGraph {`,
		`task_0_0 [shape="box", style="filled,bold", fillcolor="gray70", label="ScaleTask\nlabel: isr"];`,
		`dsref_0 [shape="box", style="rounded,filled", fillcolor="gray90", label="raw\nccd=2\nvisit=1"];`,
		`dsref_0 -> task_0_0;`,
		`dsref_1 [shape="box", style="rounded,filled", fillcolor="gray90", label="calexp\nccd=2\nvisit=1"];`,
		`task_0_0 -> dsref_1;`,
		`task_1_0 [shape="box", style="filled,bold", fillcolor="gray70", label="SumTask"];`,
		`dsref_1 -> task_1_0;`,
		`dsref_2 [shape="box", style="rounded,filled", fillcolor="gray90", label="visitSum\nvisit=1"];`,
		`task_1_0 -> dsref_2;`,
		`}`,
		``,
	}, "\n")

	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("unexpected DOT (-want +got):\n%s", diff)
	}
}

func TestWriteQuantumGraphSharedInput(t *testing.T) {
	raw := models.DataID{"visit": 1}
	steps := []plan.Step{{
		TaskName: "example.ScaleTask",
		Quanta: []*models.Quantum{
			mustQuantum(t,
				map[string][]models.DataID{"raw": {raw}},
				map[string][]models.DataID{"calexp": {{"visit": 1, "ccd": 0}}},
				"raw"),
			mustQuantum(t,
				map[string][]models.DataID{"raw": {{"visit": 1}}},
				map[string][]models.DataID{"calexp": {{"visit": 1, "ccd": 1}}},
				"raw"),
		},
	}}

	var buf bytes.Buffer
	if err := graph.WriteQuantumGraph(&buf, steps); err != nil {
		t.Fatalf("WriteQuantumGraph failed: %v", err)
	}
	out := buf.String()

	if n := strings.Count(out, `label="raw\nvisit=1"`); n != 1 {
		t.Errorf("expected one raw dataset node, got %d:\n%s", n, out)
	}
	for _, edge := range []string{"dsref_0 -> task_0_0;", "dsref_0 -> task_0_1;"} {
		if !strings.Contains(out, edge+"\n") {
			t.Errorf("missing edge %q:\n%s", edge, out)
		}
	}
	if n := strings.Count(out, "dsref_0 -> "); n != 2 {
		t.Errorf("expected 2 edges out of the shared input, got %d", n)
	}
}

func TestWriteQuantumGraphEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := graph.WriteQuantumGraph(&buf, nil); err != nil {
		t.Fatalf("WriteQuantumGraph failed: %v", err)
	}
	if buf.String() != "digraph QuantumGraph {\n}\n" {
		t.Errorf("unexpected DOT for empty plan: %q", buf.String())
	}
}

func TestWritePipeline(t *testing.T) {
	reg := task.NewRegistry()
	if err := example.Register(reg); err != nil {
		t.Fatalf("registering example tasks: %v", err)
	}
	b := pipeline.NewBuilder(reg)
	b.NewTask("ScaleTask", "isr")
	b.NewTask("SumTask", "")

	var buf bytes.Buffer
	if err := graph.WritePipeline(&buf, b.Pipeline(), reg); err != nil {
		t.Fatalf("WritePipeline failed: %v", err)
	}

	want := strings.Join([]string{
		`digraph Pipeline {`,
		`task0 [shape="box", style="filled,bold", fillcolor="gray70", label="ScaleTask\nindex: 0\nlabel: isr"];`,
		`dstype_0 [shape="box", style="rounded,filled", fillcolor="gray90", label="raw\nUnits: visit, ccd"];`,
		`dstype_0 -> task0;`,
		`dstype_1 [shape="box", style="rounded,filled", fillcolor="gray90", label="calexp\nUnits: visit, ccd"];`,
		`task0 -> dstype_1;`,
		`task1 [shape="box", style="filled,bold", fillcolor="gray70", label="SumTask\nindex: 1\nlabel: SumTask"];`,
		`dstype_1 -> task1;`,
		`dstype_2 [shape="box", style="rounded,filled", fillcolor="gray90", label="visitSum\nUnits: visit"];`,
		`task1 -> dstype_2;`,
		`}`,
		``,
	}, "\n")

	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("unexpected DOT (-want +got):\n%s", diff)
	}
}

func TestWritePipelineEscapesNames(t *testing.T) {
	reg := task.NewRegistry()
	if err := example.Register(reg); err != nil {
		t.Fatalf("registering example tasks: %v", err)
	}
	b := pipeline.NewBuilder(reg)
	if err := b.NewTask("ScaleTask", "isr"); err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if err := b.ConfigValue("isr", "output.name", `deep-coadd.v"2"`); err != nil {
		t.Fatalf("ConfigValue failed: %v", err)
	}

	var buf bytes.Buffer
	if err := graph.WritePipeline(&buf, b.Pipeline(), reg); err != nil {
		t.Fatalf("WritePipeline failed: %v", err)
	}
	out := buf.String()

	want := `dstype_1 [shape="box", style="rounded,filled", fillcolor="gray90", label="deep-coadd.v\"2\"\nUnits: visit, ccd"];`
	if !strings.Contains(out, want+"\n") {
		t.Errorf("expected escaped dataset node %s in:\n%s", want, out)
	}
	if !strings.Contains(out, "task0 -> dstype_1;\n") {
		t.Errorf("expected edge to numbered dataset node in:\n%s", out)
	}
}

func TestWritePipelineMissingLoader(t *testing.T) {
	p := pipeline.Pipeline{{TaskName: "example.ScaleTask", Label: "isr", Config: example.DefaultScaleConfig()}}
	var buf bytes.Buffer
	err := graph.WritePipeline(&buf, p, nil)
	if !errors.Is(err, models.ErrMissingTaskLoader) {
		t.Fatalf("expected ErrMissingTaskLoader, got %v", err)
	}
}

func TestSaveQuantumGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qgraph.dot")
	if err := graph.SaveQuantumGraph(path, nil); err != nil {
		t.Fatalf("SaveQuantumGraph failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading DOT file: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph QuantumGraph {") {
		t.Errorf("unexpected file content %q", data)
	}
}
