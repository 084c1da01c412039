// Package diag implements a read-only structural check ("fsck") over a
// volume file: it opens the file, walks the node tree from the root, and
// reports problems without mutating anything, grounded in the teacher's
// hive verification pass.
package diag

import (
	"fmt"

	"github.com/joshuapare/nodestore/node"
	"github.com/joshuapare/nodestore/volume"
)

// Report is the result of one Check pass.
type Report struct {
	Path      string
	Stats     volume.Stats
	NodeCount int
	Problems  []string
}

// OK reports whether the check found no problems.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Check opens path read-only (without starting any background worker) and
// walks its node tree, flagging cycles and unreadable nodes.
func Check(path string) (*Report, error) {
	vol, err := volume.Open(path)
	if err != nil {
		return nil, err
	}
	defer vol.Close()

	report := &Report{Path: path, Stats: vol.Stats()}

	rootID := vol.RootNodeRecordID()
	if rootID.IsNone() {
		report.Problems = append(report.Problems, "volume has no root node")
		return report, nil
	}

	root, err := node.NewRoot(vol, nil)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("failed to load root node: %v", err))
		return report, nil
	}

	visited := map[uint64]bool{}
	walk(root, "<root>", report, visited)
	return report, nil
}

func walk(n *node.Node, path string, report *Report, visited map[uint64]bool) {
	if visited[n.NodeID()] {
		report.Problems = append(report.Problems, fmt.Sprintf("cycle detected at node_id %d (path %s)", n.NodeID(), path))
		return
	}
	visited[n.NodeID()] = true
	report.NodeCount++

	if n.IsDeleted() {
		report.Problems = append(report.Problems, fmt.Sprintf("node_id %d (path %s) is marked deleted but still reachable", n.NodeID(), path))
	}

	for _, name := range n.ChildNames() {
		child, err := n.GetChild(name)
		if err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("failed to load child %q of %s: %v", name, path, err))
			continue
		}
		walk(child, path+"."+name, report, visited)
	}
}
