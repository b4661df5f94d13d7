package graphstate

// Store is the live set of visible nodes and links.
//
// Nodes keep their first insertion order and links keep theirs, so that
// renderers and snapshots see a stable ordering across merges.
type Store struct {
	order []string
	nodes map[string]Node

	links   []Link
	linkSet map[Link]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

// Clear empties nodes and links.
func (s *Store) Clear() {
	s.order = nil
	s.nodes = make(map[string]Node)
	s.links = nil
	s.linkSet = make(map[Link]struct{})
}

// ReplaceWith clears the store and inserts the given subgraph. A later node
// with an id already seen overwrites the earlier one in place.
func (s *Store) ReplaceWith(nodes []Node, links []Link) {
	s.Clear()
	for _, n := range nodes {
		s.putNode(n)
	}
	for _, l := range links {
		s.addLink(l)
	}
}

// MergeExpansion adds the neighbours of originID reported by an expansion.
// Unknown objects become new nodes using info (falling back to no type and
// DefaultColor); nodes already present are never modified. Every property
// yields a link origin -> object labelled with the predicate.
func (s *Store) MergeExpansion(originID string, props []Property, info map[string]NodeMeta) {
	for _, p := range props {
		if _, ok := s.nodes[p.Object]; !ok {
			n := Node{ID: p.Object, Color: DefaultColor}
			if meta, ok := info[p.Object]; ok {
				n.Type = meta.Type
				if meta.Color != "" {
					n.Color = meta.Color
				}
			}
			s.putNode(n)
		}
		s.addLink(Link{Source: originID, Target: p.Object, Label: p.Predicate})
	}
}

func (s *Store) putNode(n Node) {
	if _, ok := s.nodes[n.ID]; !ok {
		s.order = append(s.order, n.ID)
	}
	s.nodes[n.ID] = n
}

// addLink inserts l unless a structurally equal link is present.
func (s *Store) addLink(l Link) bool {
	if _, ok := s.linkSet[l]; ok {
		return false
	}
	s.linkSet[l] = struct{}{}
	s.links = append(s.links, l)
	return true
}

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.order) }

// LinkCount returns the number of links.
func (s *Store) LinkCount() int { return len(s.links) }

// Empty reports whether the store holds no nodes and no links.
func (s *Store) Empty() bool { return len(s.order) == 0 && len(s.links) == 0 }

// Has reports whether a node with the given id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns the nodes in insertion order. The slice is a copy.
func (s *Store) Nodes() []Node {
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Links returns the links in insertion order. The slice is a copy.
func (s *Store) Links() []Link {
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}

// Neighbors splits the links touching id into outgoing and incoming ones.
func (s *Store) Neighbors(id string) (out, in []Link) {
	for _, l := range s.links {
		if l.Source == id {
			out = append(out, l)
		}
		if l.Target == id {
			in = append(in, l)
		}
	}
	return out, in
}

// Snapshot captures the current contents. Later mutation of the store does
// not affect the returned value.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{nodes: s.Nodes(), links: s.Links()}
}

// Restore replaces the store contents with exactly those of snap.
func (s *Store) Restore(snap Snapshot) {
	s.ReplaceWith(snap.nodes, snap.links)
}

// Snapshot is an immutable copy of a Store taken at one point in time.
// The zero value is an empty graph.
type Snapshot struct {
	nodes []Node
	links []Link
}

// Nodes returns the captured nodes in order. The slice is a copy.
func (s Snapshot) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Links returns the captured links in order. The slice is a copy.
func (s Snapshot) Links() []Link {
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}

// NodeCount returns the number of captured nodes.
func (s Snapshot) NodeCount() int { return len(s.nodes) }

// LinkCount returns the number of captured links.
func (s Snapshot) LinkCount() int { return len(s.links) }

// HasNode reports whether the snapshot contains a node with the given id.
func (s Snapshot) HasNode(id string) bool {
	for _, n := range s.nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
