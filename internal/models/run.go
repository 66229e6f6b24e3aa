package models

import "time"

// RunConfig represents the parsed run.yaml configuration.
type RunConfig struct {
	Name          *string          `yaml:"name,omitempty" json:"name,omitempty"`
	Processes     int              `yaml:"processes" json:"processes"`
	TimeoutSec    float64          `yaml:"timeout_sec" json:"timeout_sec"`
	FailFast      bool             `yaml:"fail_fast" json:"fail_fast"`
	ClobberConfig bool             `yaml:"clobber_config" json:"clobber_config"`
	OrderPipeline bool             `yaml:"order_pipeline" json:"order_pipeline"`
	LogLevel      string           `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LogFormat     string           `yaml:"log_format,omitempty" json:"log_format,omitempty"`
	Repository    RepositoryConfig `yaml:"repository" json:"repository"`
	Inputs        DatasetPool      `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs       DatasetPool      `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	QGraphDot     string           `yaml:"qgraph_dot,omitempty" json:"qgraph_dot,omitempty"`
	PipelineDot   string           `yaml:"pipeline_dot,omitempty" json:"pipeline_dot,omitempty"`
	MetricsFile   string           `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	Tasks         []TaskSpec       `yaml:"tasks" json:"tasks"`
	Legacy        *LegacySpec      `yaml:"legacy,omitempty" json:"legacy,omitempty"`
}

type RepositoryConfig struct {
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TaskSpec is one pipeline entry of a run file.
type TaskSpec struct {
	Task      string         `yaml:"task" json:"task"`
	Label     string         `yaml:"label,omitempty" json:"label,omitempty"`
	Overrides []OverrideSpec `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// LegacySpec runs a single legacy task once per listed data item instead
// of planning a pipeline.
type LegacySpec struct {
	Task      string         `yaml:"task" json:"task"`
	Label     string         `yaml:"label,omitempty" json:"label,omitempty"`
	Overrides []OverrideSpec `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Items     []DataID       `yaml:"items" json:"items"`
}

// OverrideSpec is exactly one of a file path, a field assignment or a
// name substitution mapping.
type OverrideSpec struct {
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
	Names string `yaml:"names,omitempty" json:"names,omitempty"`
}

// RunResult summarizes one dispatcher run.
type RunResult struct {
	RunID            string       `json:"run_id"`
	RunName          string       `json:"run_name"`
	Executed         bool         `json:"executed"`
	TotalQuanta      int          `json:"total_quanta"`
	CompletedQuanta  int          `json:"completed_quanta"`
	TotalDurationSec float64      `json:"total_duration_sec"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          time.Time    `json:"ended_at"`
	Steps            []StepResult `json:"steps"`
}

// StepResult holds the per-invocation results of one step, in
// submission order. After a failed batch, invocations that did not
// complete leave a nil entry.
type StepResult struct {
	TaskName string `json:"task_name"`
	Label    string `json:"label"`
	Quanta   int    `json:"quanta"`
	Results  []any  `json:"results,omitempty"`
}
