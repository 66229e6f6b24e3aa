// Package graph renders pipelines and execution plans as GraphViz DOT.
package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/pipeline"
	"github.com/spachava753/pipetask/internal/plan"
	"github.com/spachava753/pipetask/internal/task"
)

// dotWriter remembers the first write error so rendering code can ignore
// errors until the end.
type dotWriter struct {
	w   *bufio.Writer
	err error
}

func (d *dotWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dotWriter) flush() error {
	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}

func (d *dotWriter) node(name, style, fill string, label []string) {
	lines := make([]string, len(label))
	for i, l := range label {
		lines[i] = labelEscaper.Replace(l)
	}
	d.printf("%s [shape=\"box\", style=\"%s\", fillcolor=\"%s\", label=\"%s\"];\n",
		name, style, fill, strings.Join(lines, `\n`))
}

// labelEscaper makes arbitrary text safe inside a quoted DOT string.
var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func (d *dotWriter) edge(src, dst string) {
	d.printf("%s -> %s;\n", src, dst)
}

func taskLabel(taskName, label string, idx int) []string {
	lines := []string{task.ShortName(taskName)}
	if idx >= 0 {
		lines = append(lines, fmt.Sprintf("index: %d", idx))
	}
	if label != "" {
		lines = append(lines, "label: "+label)
	}
	return lines
}

// WriteQuantumGraph renders one node per quantum and one node per distinct
// dataset, with edges from input datasets to quanta and from quanta to
// output datasets.
func WriteQuantumGraph(w io.Writer, steps []plan.Step) error {
	d := &dotWriter{w: bufio.NewWriter(w)}
	d.printf("digraph QuantumGraph {\n")

	datasets := make(map[string]string)
	datasetNode := func(ref models.DatasetRef) string {
		key := ref.Key()
		if name, ok := datasets[key]; ok {
			return name
		}
		name := fmt.Sprintf("dsref_%d", len(datasets))
		datasets[key] = name

		label := []string{ref.DatasetType}
		for _, k := range ref.DataID.Keys() {
			label = append(label, fmt.Sprintf("%s=%v", k, ref.DataID[k]))
		}
		d.node(name, "rounded,filled", "gray90", label)
		return name
	}

	for taskIdx, step := range steps {
		for qIdx, q := range step.Quanta {
			taskNode := fmt.Sprintf("task_%d_%d", taskIdx, qIdx)
			d.node(taskNode, "filled,bold", "gray70", taskLabel(step.TaskName, step.Label, -1))

			for _, ref := range q.InputRefs() {
				d.edge(datasetNode(ref), taskNode)
			}
			for _, ref := range q.OutputRefs() {
				d.edge(taskNode, datasetNode(ref))
			}
		}
	}

	d.printf("}\n")
	return d.flush()
}

// WritePipeline renders one node per task and one node per dataset type.
// Tasks without a resolved class are loaded through loader.
func WritePipeline(w io.Writer, p pipeline.Pipeline, loader pipeline.ClassLoader) error {
	d := &dotWriter{w: bufio.NewWriter(w)}
	d.printf("digraph Pipeline {\n")

	// Dataset type names are arbitrary text, so nodes are numbered.
	types := make(map[string]string)
	typeNode := func(dt models.DatasetType) string {
		if name, ok := types[dt.Name]; ok {
			return name
		}
		name := fmt.Sprintf("dstype_%d", len(types))
		types[dt.Name] = name
		label := []string{dt.Name}
		if len(dt.Units) > 0 {
			label = append(label, "Units: "+strings.Join(dt.Units, ", "))
		}
		d.node(name, "rounded,filled", "gray90", label)
		return name
	}

	for idx, td := range p {
		taskNode := fmt.Sprintf("task%d", idx)
		d.node(taskNode, "filled,bold", "gray70", taskLabel(td.TaskName, td.Label, idx))

		c, err := td.ResolveClass(loader)
		if err != nil {
			return &models.PlanningError{Task: td.Label, Message: "resolving task class", Err: err}
		}
		inputs, outputs, err := c.DatasetTypes(td.Config)
		if err != nil {
			return &models.PlanningError{Task: td.Label, Message: "reading dataset types", Err: err}
		}

		for _, dt := range inputs {
			d.edge(typeNode(dt), taskNode)
		}
		for _, dt := range outputs {
			d.edge(taskNode, typeNode(dt))
		}
	}

	d.printf("}\n")
	return d.flush()
}

// SaveQuantumGraph writes the quantum graph DOT to path.
func SaveQuantumGraph(path string, steps []plan.Step) error {
	return saveFile(path, func(w io.Writer) error { return WriteQuantumGraph(w, steps) })
}

// SavePipeline writes the pipeline DOT to path.
func SavePipeline(path string, p pipeline.Pipeline, loader pipeline.ClassLoader) error {
	return saveFile(path, func(w io.Writer) error { return WritePipeline(w, p, loader) })
}

func saveFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
