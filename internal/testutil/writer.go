package testutil

import (
	"sync"
)

// Write is one artifact captured by RecordingWriter.
type Write struct {
	Path     string
	Artifact string
}

// RecordingWriter is an output.Writer that keeps artifacts in memory.
type RecordingWriter struct {
	mu     sync.Mutex
	writes []Write

	// Err, when set, fails every write.
	Err error
}

// Write implements output.Writer.
func (w *RecordingWriter) Write(path string, artifact []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.writes = append(w.writes, Write{Path: path, Artifact: string(artifact)})
	return nil
}

// Writes returns the captured writes in order.
func (w *RecordingWriter) Writes() []Write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Write(nil), w.writes...)
}

// Files returns path -> artifact of the last write to each path.
func (w *RecordingWriter) Files() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.writes))
	for _, wr := range w.writes {
		out[wr.Path] = wr.Artifact
	}
	return out
}

// Reset discards captured writes.
func (w *RecordingWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = nil
}
