package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
)

type connections struct {
	inputs  []models.DatasetType
	outputs []models.DatasetType
}

func taskConnections(p Pipeline, loader ClassLoader) ([]connections, error) {
	conns := make([]connections, len(p))
	for i, td := range p {
		c, err := td.ResolveClass(loader)
		if err != nil {
			return nil, &models.PlanningError{Task: td.Label, Message: "resolving task class", Err: err}
		}
		in, out, err := c.DatasetTypes(td.Config)
		if err != nil {
			return nil, &models.PlanningError{Task: td.Label, Message: "reading dataset types", Err: err}
		}
		conns[i] = connections{inputs: in, outputs: out}
	}
	return conns, nil
}

// producers maps every output dataset type to the index of the task that
// produces it.
func producers(p Pipeline, conns []connections) (map[string]int, error) {
	producer := make(map[string]int)
	for idx, c := range conns {
		for _, dt := range c.outputs {
			if prev, dup := producer[dt.Name]; dup {
				return nil, &models.PlanningError{
					Task:    p[idx].Label,
					Message: fmt.Sprintf("dataset type %q is already produced by %s", dt.Name, p[prev].Label),
					Err:     models.ErrDuplicateProducer,
				}
			}
			producer[dt.Name] = idx
		}
	}
	return producer, nil
}

// IsOrdered reports whether every task comes after the producers of all
// its inputs. Inputs no task produces are treated as pre-existing.
func IsOrdered(p Pipeline, loader ClassLoader) (bool, error) {
	conns, err := taskConnections(p, loader)
	if err != nil {
		return false, err
	}
	producer, err := producers(p, conns)
	if err != nil {
		return false, err
	}

	for idx, c := range conns {
		for _, dt := range c.inputs {
			if pidx, ok := producer[dt.Name]; ok && pidx >= idx {
				return false, nil
			}
		}
	}
	return true, nil
}

// Order returns the pipeline re-ordered so every task follows the
// producers of its inputs. Among tasks ready at the same time the one
// earlier in p goes first, so an already ordered pipeline is unchanged.
func Order(p Pipeline, loader ClassLoader) (Pipeline, error) {
	conns, err := taskConnections(p, loader)
	if err != nil {
		return nil, err
	}
	producer, err := producers(p, conns)
	if err != nil {
		return nil, err
	}

	inDegree := make([]int, len(p))
	dependents := make([][]int, len(p))
	for idx, c := range conns {
		deps := make(map[int]struct{})
		for _, dt := range c.inputs {
			if pidx, ok := producer[dt.Name]; ok {
				deps[pidx] = struct{}{}
			}
		}
		inDegree[idx] = len(deps)
		for pidx := range deps {
			dependents[pidx] = append(dependents[pidx], idx)
		}
	}

	var ready []int
	for idx, d := range inDegree {
		if d == 0 {
			ready = append(ready, idx)
		}
	}

	ordered := make(Pipeline, 0, len(p))
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		ordered = append(ordered, p[idx])

		for _, dep := range dependents[idx] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
				sort.Ints(ready)
			}
		}
	}

	if len(ordered) != len(p) {
		var stuck []string
		for idx, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, p[idx].Label)
			}
		}
		return nil, &models.PlanningError{
			Message: "tasks " + strings.Join(stuck, ", "),
			Err:     models.ErrDataCycle,
		}
	}
	return ordered, nil
}
