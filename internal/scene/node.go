package scene

import "github.com/l1jgo/pooling/internal/pool"

// Prototype describes what a pooled node is built from: a root node named
// after the kind plus one child node per component.
type Prototype struct {
	Name       string
	Components []string
}

func (p *Prototype) Kind() string {
	if p == nil {
		return ""
	}
	return p.Name
}

// Node is one object in the scene graph. Pooled instances, their component
// children and pool scopes are all nodes.
type Node struct {
	id         Handle
	name       string
	kind       string // owning prototype kind; empty for scopes and plain nodes
	component  string // component name for prototype children
	scene      *Scene
	parent     *Node
	children   []*Node
	active     bool
	persistent bool
	scope      bool
	place      pool.Placement
}

func (n *Node) ID() Handle                { return n.id }
func (n *Node) Name() string              { return n.name }
func (n *Node) Kind() string              { return n.kind }
func (n *Node) Component() string         { return n.component }
func (n *Node) Parent() *Node             { return n.parent }
func (n *Node) Active() bool              { return n.active }
func (n *Node) Persistent() bool          { return n.persistent }
func (n *Node) Placement() pool.Placement { return n.place }

// Children returns a copy of the node's children.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Activate places the node and makes it active.
func (n *Node) Activate(p pool.Placement) {
	n.place = p
	n.active = true
}

func (n *Node) Deactivate() { n.active = false }

// Attach reparents the node under scope, or to the scene root when scope
// is not a node of this scene.
func (n *Node) Attach(scope pool.Scope) {
	if s, ok := scope.(*Node); ok && s.scene == n.scene && s.Alive() {
		n.SetParent(s)
		return
	}
	n.SetParent(nil)
}

func (n *Node) Alive() bool {
	return n.scene != nil && n.scene.Alive(n.id)
}

func (n *Node) ScopeName() string { return n.name }

// Owned lists the node's children for broadcast notifications.
func (n *Node) Owned() []any {
	out := make([]any, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) OnAllocate()   { n.scene.fire(n, pool.EventAllocate) }
func (n *Node) OnDeallocate() { n.scene.fire(n, pool.EventDeallocate) }

// SetParent moves the node under parent; nil makes it a root.
func (n *Node) SetParent(parent *Node) {
	if n.parent == parent && (parent != nil || n.scene.isRoot(n)) {
		return
	}
	n.detach()
	n.parent = parent
	if parent == nil {
		n.scene.roots = append(n.scene.roots, n)
		return
	}
	parent.children = append(parent.children, n)
}

// SetPersistent marks a root node (and so its subtree) as surviving reloads.
// Active nodes are still destroyed by a reload.
func (n *Node) SetPersistent(v bool) { n.persistent = v }

func (n *Node) detach() {
	if n.parent == nil {
		n.scene.roots = removeNode(n.scene.roots, n)
		return
	}
	n.parent.children = removeNode(n.parent.children, n)
	n.parent = nil
}

func (n *Node) root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
