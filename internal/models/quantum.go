package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Quantum is the smallest independently executable unit of work: one
// task applied to a specific set of input DataIDs producing a specific
// set of output DataIDs.
type Quantum struct {
	Inputs  map[string][]DataID `yaml:"inputs" json:"inputs"`
	Outputs map[string][]DataID `yaml:"outputs" json:"outputs"`
	// Extras is opaque task-specific data carried alongside the quantum.
	Extras any `yaml:"extras,omitempty" json:"extras,omitempty"`
	// Director names the dataset type whose DataIDs drive this quantum.
	Director string `yaml:"director" json:"director"`
}

// NewQuantum validates and builds a Quantum. The director is optional;
// when set it must be a dataset type name present in inputs or outputs.
func NewQuantum(inputs, outputs map[string][]DataID, extras any, director string) (*Quantum, error) {
	_, inInputs := inputs[director]
	_, inOutputs := outputs[director]
	if director != "" && !inInputs && !inOutputs {
		return nil, fmt.Errorf("quantum director %q is not an input or output dataset type", director)
	}
	if inputs == nil {
		inputs = map[string][]DataID{}
	}
	if outputs == nil {
		outputs = map[string][]DataID{}
	}
	return &Quantum{
		Inputs:   inputs,
		Outputs:  outputs,
		Extras:   extras,
		Director: director,
	}, nil
}

// InputRefs returns the input refs, dataset types in sorted order and
// DataIDs in insertion order.
func (q *Quantum) InputRefs() []DatasetRef {
	return refs(q.Inputs)
}

// OutputRefs returns the output refs in the same order as InputRefs.
func (q *Quantum) OutputRefs() []DatasetRef {
	return refs(q.Outputs)
}

func refs(m map[string][]DataID) []DatasetRef {
	var out []DatasetRef
	for _, name := range sortedKeys(m) {
		for _, id := range m[name] {
			out = append(out, DatasetRef{DatasetType: name, DataID: id})
		}
	}
	return out
}

// EncodeQuantum serializes a quantum for transfer to a worker. Value
// types in DataIDs and extras survive the trip.
func EncodeQuantum(q *Quantum) ([]byte, error) {
	data, err := EncodeYAML(q)
	if err != nil {
		return nil, fmt.Errorf("encoding quantum: %w", err)
	}
	return data, nil
}

// DecodeQuantum is the inverse of EncodeQuantum. The director is
// re-validated on the receiving side.
func DecodeQuantum(data []byte) (*Quantum, error) {
	var q Quantum
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decoding quantum: %w", err)
	}
	return NewQuantum(q.Inputs, q.Outputs, q.Extras, q.Director)
}
