package capability

import "reflect"

// Discoverer walks a client's object graph breadth-first.
type Discoverer struct {
	opts Options
}

// NewDiscoverer returns a Discoverer with normalized options.
func NewDiscoverer(opts Options) *Discoverer {
	return &Discoverer{opts: opts.normalize()}
}

// Options returns the effective options.
func (d *Discoverer) Options() Options { return d.opts }

// WalkResult is the unfiltered outcome of one traversal.
type WalkResult struct {
	// Callables holds every callable member in breadth-first order.
	Callables []Capability
	// Visited counts distinct objects visited.
	Visited int
	// Truncated is set when MaxNodes stopped the traversal.
	Truncated bool
}

type node struct {
	value reflect.Value
	path  string
	depth int
}

// Walk visits the graph rooted at root and records every callable member.
// It never calls a callable; accessors are resolved unless SkipAccessors is set.
func (d *Discoverer) Walk(root any) WalkResult {
	return d.walk(reflect.ValueOf(root), d.opts.RootName, d.opts.MaxDepth)
}

// Discover returns the ranked sender candidates reachable from root.
func (d *Discoverer) Discover(root any) []Capability {
	return Rank(d.Walk(root).Callables, SenderLexicon)
}

func (d *Discoverer) walk(root reflect.Value, rootName string, maxDepth int) WalkResult {
	var res WalkResult
	root = box(root)
	if !root.IsValid() {
		return res
	}

	seen := make(map[identity]struct{})
	queue := []node{{value: root, path: rootName}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if res.Visited >= d.opts.MaxNodes {
			res.Truncated = true
			break
		}
		if id, ok := identityOf(n.value); ok {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		res.Visited++
		if d.opts.OnVisit != nil {
			d.opts.OnVisit(Visit{Path: n.path, Depth: n.depth, Object: interfaceOf(n.value)})
		}

		expand := n.depth < maxDepth && res.Visited < d.opts.MaxNodes
		for _, m := range members(n.value, !d.opts.SkipAccessors) {
			path := n.path + "." + m.name
			if m.callable {
				res.Callables = append(res.Callables, newCapability(path, n.depth, m.fn))
				continue
			}
			if !expand {
				continue
			}
			v, ok := m.resolve()
			if !ok || !isObject(v) {
				continue
			}
			queue = append(queue, node{value: box(v), path: path, depth: n.depth + 1})
		}
	}
	return res
}
