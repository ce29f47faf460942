package testplan

import (
	"fmt"
	"strings"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// CycleError reports a malformed suite hierarchy whose parent references
// loop. The source data is assumed acyclic; this guards the walk against
// upstream corruption instead of spinning forever.
type CycleError struct {
	SuiteID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("suite hierarchy cycle detected walking from suite %s", e.SuiteID)
}

// Hierarchy indexes a suite snapshot: parent to children, node to root
// ancestor, and the slash-joined display path per node. It is immutable
// after construction apart from the internal path cache; rebuilding requires
// a fresh instance from a fresh snapshot. Not safe for concurrent use.
type Hierarchy struct {
	byID     map[string]azdo.Suite
	children map[string][]azdo.Suite
	roots    []azdo.Suite
	paths    map[string]string
}

// NewHierarchy builds the index. Child ordering under a parent follows the
// input order.
func NewHierarchy(suites []azdo.Suite) *Hierarchy {
	h := &Hierarchy{
		byID:     make(map[string]azdo.Suite, len(suites)),
		children: make(map[string][]azdo.Suite),
		paths:    make(map[string]string, len(suites)),
	}
	for _, s := range suites {
		h.byID[s.ID] = s
		if s.ParentID == "" {
			h.roots = append(h.roots, s)
			continue
		}
		h.children[s.ParentID] = append(h.children[s.ParentID], s)
	}
	return h
}

// Roots returns the top-level suites in input order.
func (h *Hierarchy) Roots() []azdo.Suite {
	return h.roots
}

// Children returns the direct children of a suite in input order.
func (h *Hierarchy) Children(parentID string) []azdo.Suite {
	return h.children[parentID]
}

// Suite returns the suite record for an id.
func (h *Hierarchy) Suite(id string) (azdo.Suite, bool) {
	s, ok := h.byID[id]
	return s, ok
}

// RootAncestor follows parent references until a suite with no parent is
// reached and returns its id.
func (h *Hierarchy) RootAncestor(id string) (string, error) {
	cur, ok := h.byID[id]
	if !ok {
		return "", fmt.Errorf("unknown suite id %s", id)
	}
	seen := map[string]bool{cur.ID: true}
	for cur.ParentID != "" {
		next, ok := h.byID[cur.ParentID]
		if !ok {
			// Parent outside the snapshot; treat the current node as root.
			break
		}
		if seen[next.ID] {
			return "", &CycleError{SuiteID: id}
		}
		seen[next.ID] = true
		cur = next
	}
	return cur.ID, nil
}

// Path returns the slash-joined names from the root down to the suite,
// cached per id for the lifetime of the instance.
func (h *Hierarchy) Path(id string) (string, error) {
	if p, ok := h.paths[id]; ok {
		return p, nil
	}
	cur, ok := h.byID[id]
	if !ok {
		return "", fmt.Errorf("unknown suite id %s", id)
	}

	parts := []string{}
	seen := map[string]bool{}
	for {
		if seen[cur.ID] {
			return "", &CycleError{SuiteID: id}
		}
		seen[cur.ID] = true
		parts = append(parts, cur.Name)
		if cur.ParentID == "" {
			break
		}
		next, ok := h.byID[cur.ParentID]
		if !ok {
			break
		}
		cur = next
	}

	// Reverse into root-first order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	p := strings.Join(parts, "/")
	h.paths[id] = p
	return p, nil
}
