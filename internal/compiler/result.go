package compiler

// Result is the outcome of running a compiler: either Done or Expand.
//
// The interface is sealed by an unexported method so no other shapes exist.
type Result interface {
	isResult()
}

// Done carries a finished artifact ready for routing and writing.
type Done struct {
	Artifact []byte
}

// Expand carries a new batch of jobs to register and run before the engine
// continues with the rest of the current batch.
type Expand struct {
	Batch []Job
}

func (Done) isResult()   {}
func (Expand) isResult() {}
