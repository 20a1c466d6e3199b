package convert

import (
	"fmt"
	"strings"
	"time"
)

import (
	"github.com/dustin/go-humanize"
)

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input: %s\n", r.Input)
	total := 0
	for _, s := range r.Routes {
		src := "computed"
		if s.Overridden {
			src = "metadata"
		}
		fmt.Fprintf(&sb, "  Wayline %d: %s shots, %s (%s)\n", s.WaylineID,
			humanize.Comma(int64(s.Shots)), humanize.SIWithDigits(s.Distance, 1, "m"), src)
		total += s.Shots
	}
	fmt.Fprintf(&sb, "Shots: %s\n", humanize.Comma(int64(total)))
	if r.Spacings > 0 {
		fmt.Fprintf(&sb, "Spacing: p05 %.1fm, p50 %.1fm, p95 %.1fm\n", r.Spacing[0], r.Spacing[1], r.Spacing[2])
	}
	for _, e := range r.Skipped {
		fmt.Fprintf(&sb, "Skipped: %v\n", e)
	}
	for _, id := range r.Omitted {
		fmt.Fprintf(&sb, "Omitted: wayline %d (no shots)\n", id)
	}
	for _, o := range r.Outputs {
		fmt.Fprintf(&sb, "Wrote %s %s (%s)\n", o.Kind, o.Path, humanize.Bytes(uint64(o.Size)))
	}
	if r.Published > 0 {
		fmt.Fprintf(&sb, "Published: %s messages\n", humanize.Comma(int64(r.Published)))
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(&sb, "Elapsed: %s\n", r.Elapsed.Round(time.Millisecond))
	}
	return sb.String()
}
