package bench

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// String renders the report as an aligned text table.
func (r *Report) String() string {
	var sb strings.Builder

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUERY\tBACKEND\tROWS\tMIN\tAVG\tP50\tP95\tP99\tMAX")
	for _, q := range r.Queries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%v\t%v\t%v\t%v\t%v\n",
			q.Name, q.Backend, q.Rows, q.Min, q.Avg, q.P50, q.P95, q.P99, q.Max)
	}
	w.Flush()

	fmt.Fprintf(&sb, "\nrelational artifact: %s\n", formatBytes(r.RelationalBytes))
	fmt.Fprintf(&sb, "columnar artifact:   %s\n", formatBytes(r.ColumnarBytes))

	return sb.String()
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB (%d bytes)", float64(n)/float64(div), "KMGTPE"[exp], n)
}
