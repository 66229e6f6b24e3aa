package task

// Kind tags a task class with the execution path it takes.
type Kind int

const (
	// KindUnknown classes implement no runnable capability. It is also the
	// zero value: classes registered without a kind are classified from a
	// prototype instance.
	KindUnknown Kind = iota
	KindPipeline
	KindLegacy
	// KindAmbiguous classes implement both capabilities.
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindLegacy:
		return "legacy"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Runnable reports whether the dispatcher has an execution path for k.
func (k Kind) Runnable() bool {
	return k == KindPipeline || k == KindLegacy
}

// Classify derives the kind of a task instance from the capabilities it
// implements.
func Classify(instance any) Kind {
	_, isPipeline := instance.(PipelineTask)
	_, isLegacy := instance.(LegacyTask)
	switch {
	case isPipeline && isLegacy:
		return KindAmbiguous
	case isPipeline:
		return KindPipeline
	case isLegacy:
		return KindLegacy
	default:
		return KindUnknown
	}
}
