package models_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spachava753/pipetask/internal/models"
)

func TestNewQuantumDirector(t *testing.T) {
	inputs := map[string][]models.DataID{"raw": {{"visit": 1}}}
	outputs := map[string][]models.DataID{"calexp": {{"visit": 1}}}

	tests := []struct {
		name     string
		director string
		wantErr  bool
	}{
		{name: "input director", director: "raw"},
		{name: "output director", director: "calexp"},
		{name: "unknown director", director: "coadd", wantErr: true},
		{name: "no director", director: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := models.NewQuantum(inputs, outputs, nil, tt.director)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for director %q", tt.director)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewQuantum failed: %v", err)
			}
			if q.Director != tt.director {
				t.Errorf("expected director %q, got %q", tt.director, q.Director)
			}
		})
	}
}

func TestQuantumWireRoundTrip(t *testing.T) {
	q, err := models.NewQuantum(
		map[string][]models.DataID{
			"raw": {{"visit": 3, "ccd": 1}, {"visit": 1, "ccd": 2}, {"visit": 2, "ccd": "a"}},
		},
		map[string][]models.DataID{
			"calexp": {{"visit": 3}},
		},
		map[string]any{"note": "first", "count": 2},
		"raw",
	)
	if err != nil {
		t.Fatalf("NewQuantum failed: %v", err)
	}

	data, err := models.EncodeQuantum(q)
	if err != nil {
		t.Fatalf("EncodeQuantum failed: %v", err)
	}
	got, err := models.DecodeQuantum(data)
	if err != nil {
		t.Fatalf("DecodeQuantum failed: %v", err)
	}

	if diff := cmp.Diff(q, got); diff != "" {
		t.Errorf("quantum changed across the wire (-want +got):\n%s", diff)
	}
}

func TestQuantumWireKeepsValueTypes(t *testing.T) {
	tests := []struct {
		name     string
		inputs   map[string][]models.DataID
		extras   any
		director string
	}{
		{
			name:     "whole floats",
			inputs:   map[string][]models.DataID{"raw": {{"visit": 1, "exposure": 30.0}}},
			extras:   map[string]any{"scale": 2.0, "bounds": []any{0.0, 1.5}},
			director: "raw",
		},
		{
			name:     "string digits",
			inputs:   map[string][]models.DataID{"raw": {{"visit": "1"}, {"visit": 1}}},
			extras:   "2",
			director: "raw",
		},
		{
			name:   "no director",
			inputs: map[string][]models.DataID{"raw": {{"visit": 1, "ratio": -4.0}}},
			extras: 7.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := models.NewQuantum(tt.inputs, nil, tt.extras, tt.director)
			if err != nil {
				t.Fatalf("NewQuantum failed: %v", err)
			}
			data, err := models.EncodeQuantum(q)
			if err != nil {
				t.Fatalf("EncodeQuantum failed: %v", err)
			}
			got, err := models.DecodeQuantum(data)
			if err != nil {
				t.Fatalf("DecodeQuantum failed: %v", err)
			}
			if diff := cmp.Diff(q, got); diff != "" {
				t.Errorf("quantum changed across the wire (-want +got):\n%s\nencoded:\n%s", diff, data)
			}
		})
	}
}

func TestEncodeYAMLStruct(t *testing.T) {
	type sub struct {
		Ratio float64 `yaml:"ratio"`
	}
	type config struct {
		Factor   float64 `yaml:"factor"`
		Count    int     `yaml:"count"`
		Note     string  `yaml:"note,omitempty"`
		Anything any     `yaml:"anything"`
		Sub      sub     `yaml:"sub"`
		Skipped  string  `yaml:"-"`
	}

	data, err := models.EncodeYAML(&config{Factor: 10, Count: 3, Anything: 4.0, Sub: sub{Ratio: 0.5}, Skipped: "x"})
	if err != nil {
		t.Fatalf("EncodeYAML failed: %v", err)
	}
	want := "factor: 10.0\ncount: 3\nanything: 4.0\nsub:\n    ratio: 0.5\n"
	if string(data) != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, data)
	}
}

func TestDecodeQuantumRejectsBadDirector(t *testing.T) {
	data := []byte("inputs:\n  raw:\n    - visit: 1\noutputs: {}\ndirector: coadd\n")
	if _, err := models.DecodeQuantum(data); err == nil {
		t.Fatal("expected error for director missing from inputs and outputs")
	}
}
