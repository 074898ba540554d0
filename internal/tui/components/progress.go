package components

import (
	"fmt"
	"strings"
)

const (
	doneCell   = "■"
	failedCell = "×"
	openCell   = "□"
)

// Progress is a fixed-width tally of finished items, e.g. "■■×□□ 2/5 tasks, 1 failed".
type Progress struct {
	Done   int
	Failed int
	Total  int
	Width  int
	Unit   string
}

func NewProgress(done, total, width int, unit string) Progress {
	return Progress{Done: done, Total: total, Width: width, Unit: unit}
}

// WithFailed marks n items as failed. Failed items are drawn after the done
// ones and do not count toward the done total.
func (p Progress) WithFailed(n int) Progress {
	p.Failed = n
	return p
}

func (p Progress) View() string {
	if p.Total <= 0 || p.Width <= 0 {
		return ""
	}
	done := clamp(p.Done, 0, p.Total)
	failed := clamp(p.Failed, 0, p.Total-done)

	doneCells := done * p.Width / p.Total
	failedCells := failed * p.Width / p.Total
	if failed > 0 && failedCells == 0 && doneCells < p.Width {
		failedCells = 1
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(doneCell, doneCells))
	b.WriteString(strings.Repeat(failedCell, failedCells))
	b.WriteString(strings.Repeat(openCell, p.Width-doneCells-failedCells))
	fmt.Fprintf(&b, " %d/%d", done, p.Total)
	if p.Unit != "" {
		b.WriteString(" " + p.Unit)
	}
	if failed > 0 {
		fmt.Fprintf(&b, ", %d failed", failed)
	}
	return b.String()
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
