package board

import "time"

// sample is one recorded activity: when it happened and how many work
// units it carried.
type sample struct {
	at  time.Time
	qty int
}

// window is a bounded rolling window of samples ordered by insertion.
// Entries leave from the front, either displaced by capacity or pruned
// by age. A running sum keeps rate computation O(1) per event.
type window struct {
	capacity int
	samples  []sample
	sum      int
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = 1
	}
	return &window{capacity: capacity}
}

func (w *window) add(at time.Time, qty int) {
	if len(w.samples) >= w.capacity {
		w.sum -= w.samples[0].qty
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, sample{at: at, qty: qty})
	w.sum += qty
}

// prune drops every sample strictly older than cutoff.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.samples) && w.samples[i].at.Before(cutoff) {
		w.sum -= w.samples[i].qty
		i++
	}
	if i > 0 {
		w.samples = w.samples[i:]
	}
}

func (w *window) total() int {
	return w.sum
}

func (w *window) size() int {
	return len(w.samples)
}

func (w *window) reset() {
	w.samples = nil
	w.sum = 0
}

// oldest returns the timestamp of the front sample, if any.
func (w *window) oldest() (time.Time, bool) {
	if len(w.samples) == 0 {
		return time.Time{}, false
	}
	return w.samples[0].at, true
}
