package render

import (
	"hash/fnv"
	"strconv"
)

// dataVersionInput is the cheap, per-pane summary dataVersion hashes over,
// gathered while walking the layout tree so no second pass over panes is
// needed.
type dataVersionInput struct {
	paneID     int
	cursorRow  int
	cursorCol  int
	active     bool
	inCopyMode bool
	scrollOff  int
	dirty      uint64
}

// dataVersion computes spec.md §4.5.a's cheap change-detection hash: a
// digest over window count, the active window/pane indices, and each
// visible pane's cursor position, copy-mode fields, and VT dirty counter.
// Grounded on the teacher's SessionSnapshotDelta idea of tracking change
// via cheap per-entity identity rather than a full content diff, narrowed
// here to a single hash instead of an upsert/remove list since the
// streaming protocol only needs to know "changed or not", not what
// changed.
func dataVersion(windowCount, activeWindowID int, panes []dataVersionInput) uint64 {
	h := fnv.New64a()
	write := func(s string) { h.Write([]byte(s)); h.Write([]byte{0}) }

	write(strconv.Itoa(windowCount))
	write(strconv.Itoa(activeWindowID))
	for _, p := range panes {
		write(strconv.Itoa(p.paneID))
		write(strconv.Itoa(p.cursorRow))
		write(strconv.Itoa(p.cursorCol))
		write(boolMark(p.active))
		write(boolMark(p.inCopyMode))
		write(strconv.Itoa(p.scrollOff))
		write(strconv.FormatUint(p.dirty, 10))
	}
	return h.Sum64()
}

func boolMark(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
