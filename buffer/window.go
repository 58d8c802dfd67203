package buffer

// Window is a fixed-size circular buffer of accept/reject outcomes. The
// Metropolis steps record every proposal here so that tuning can read a
// recent acceptance rate instead of the whole-run average, which lags badly
// once a few hundred proposals have accumulated.
type Window struct {
	buffer    []bool // actual storage
	pos       int    // Current position in buffer
	hits      int    // Accepted outcomes currently stored
	BufSize   int    // BufSize is the fixed number of outcomes maintained in memory
	Count     int    // Count is the number of outcomes in memory. Will always be <= BufSize
	TotalSeen int64  // TotalSeen is the total number of times Add has been called
}

// NewWindow creates a new outcome window of totalSize. Sizes below 1 are
// adjusted up.
func NewWindow(totalSize int) *Window {
	if totalSize < 1 {
		totalSize = 1
	}

	return &Window{
		buffer:  make([]bool, totalSize),
		pos:     0,
		BufSize: totalSize,
		Count:   0,
	}
}

// Add appends the given outcome to the window, overwriting the oldest entry.
func (w *Window) Add(accepted bool) {
	w.TotalSeen++

	if w.Count == w.BufSize && w.buffer[w.pos] {
		w.hits-- // Oldest entry rolls off
	}

	w.buffer[w.pos] = accepted
	if accepted {
		w.hits++
	}

	w.pos = (w.pos + 1) % w.BufSize

	if w.Count < w.BufSize {
		w.Count++
	}
}

// Full returns true once Add has been called at least BufSize times since the
// last Reset.
func (w *Window) Full() bool {
	return w.Count >= w.BufSize
}

// Rate returns the acceptance rate over the stored outcomes. An empty window
// has rate 0.
func (w *Window) Rate() float64 {
	if w.Count < 1 {
		return 0.0
	}
	return float64(w.hits) / float64(w.Count)
}

// Reset discards the stored outcomes but not TotalSeen. Used after each
// tuning adjustment so the next reading reflects the new proposal scale.
func (w *Window) Reset() {
	w.pos = 0
	w.hits = 0
	w.Count = 0
}
