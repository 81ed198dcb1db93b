package telemetry

import (
	"fmt"
	"io"
	"time"
)

// formatTimingTree writes the tree rooted at root, one operation per line:
//
//	compute 2 assets: 12ms
//	├─ asset BTC (3 in, 2 out): 5ms
//	│  ├─ register lots: 0ms
//	│  └─ match disposals: 4ms
//	└─ asset ETH (1 in, 1 out): 6ms
func formatTimingTree(w io.Writer, root *timerNode) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, formatDuration(root.duration()))

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1)
	}
}

func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool) {
	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	_, _ = fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, node.name, formatDuration(node.duration()))

	for i, child := range node.children {
		formatNode(w, child, prefix+extension, i == len(node.children)-1)
	}
}

// formatDuration shows milliseconds below one second and seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
}
