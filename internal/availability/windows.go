package availability

import (
	"sort"

	"github.com/Freeeeeet/medbook/internal/model"
)

// window is a half-open [start, end) range of wall-clock time
type window struct {
	start model.TimeOfDay
	end   model.TimeOfDay
}

func (w window) empty() bool {
	return w.end <= w.start
}

// union merges overlapping and touching windows
func union(ws []window) []window {
	if len(ws) == 0 {
		return nil
	}

	sorted := make([]window, len(ws))
	copy(sorted, ws)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	merged := []window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}

	return merged
}

// subtract removes cut from every window, splitting windows it falls inside
func subtract(ws []window, cut window) []window {
	var out []window
	for _, w := range ws {
		if cut.end <= w.start || w.end <= cut.start {
			out = append(out, w)
			continue
		}
		if left := (window{start: w.start, end: cut.start}); !left.empty() {
			out = append(out, left)
		}
		if right := (window{start: cut.end, end: w.end}); !right.empty() {
			out = append(out, right)
		}
	}
	return out
}

// partition cuts w into back-to-back slots of the given length.
// A trailing remainder shorter than one slot is dropped.
func partition(w window, minutes int) []model.Slot {
	step := model.TimeOfDay(minutes * 60)
	if step <= 0 {
		return nil
	}

	var slots []model.Slot
	for start := w.start; start+step <= w.end; start += step {
		slots = append(slots, model.Slot{Start: start, End: start + step})
	}
	return slots
}
