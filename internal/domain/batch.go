package domain

// BatchItem pairs a batch input with either its result or its error.
type BatchItem[T any] struct {
	Index  int
	Input  T
	Result *JobResult
	Err    error
}

// BatchOutcome keeps successes and failures in separate lists. Both lists keep
// the relative input order and together cover every input exactly once.
type BatchOutcome[T any] struct {
	Successes []BatchItem[T]
	Failures  []BatchItem[T]
}

// Total returns the number of processed inputs.
func (o BatchOutcome[T]) Total() int {
	return len(o.Successes) + len(o.Failures)
}
