// Package taxonomy groups the backend's flat family/genus table into a
// three-level tree (科 → 属 → plant) for browsing.
package taxonomy

import "github.com/vanderheijden86/herbgraph/pkg/kgapi"

// Level is the depth of a tree node.
type Level int

const (
	Family Level = iota
	Genus
	Plant
)

func (l Level) String() string {
	switch l {
	case Family:
		return "family"
	case Genus:
		return "genus"
	default:
		return "plant"
	}
}

// Node is one entry in the tree.
type Node struct {
	Name     string
	Level    Level
	Children []*Node
	Parent   *Node
}

// Tree is the grouped taxonomy. Families and genera keep the order in which
// they first appear in the source table.
type Tree struct {
	Roots  []*Node
	plants map[string]*Node // first occurrence of each plant name
}

// Build groups entries by family then genus. A genus listed twice under the
// same family keeps the later plant list, matching how the table is keyed.
func Build(entries []kgapi.TaxonomyEntry) *Tree {
	t := &Tree{plants: make(map[string]*Node)}
	families := make(map[string]*Node)
	genera := make(map[string]map[string]*Node)

	for _, e := range entries {
		fam, ok := families[e.Family]
		if !ok {
			fam = &Node{Name: e.Family, Level: Family}
			families[e.Family] = fam
			genera[e.Family] = make(map[string]*Node)
			t.Roots = append(t.Roots, fam)
		}
		gen, ok := genera[e.Family][e.Genus]
		if !ok {
			gen = &Node{Name: e.Genus, Level: Genus, Parent: fam}
			genera[e.Family][e.Genus] = gen
			fam.Children = append(fam.Children, gen)
		}
		gen.Children = gen.Children[:0]
		for _, p := range e.Plants {
			gen.Children = append(gen.Children, &Node{Name: p, Level: Plant, Parent: gen})
		}
	}

	for _, fam := range t.Roots {
		for _, gen := range fam.Children {
			for _, p := range gen.Children {
				if _, seen := t.plants[p.Name]; !seen {
					t.plants[p.Name] = p
				}
			}
		}
	}
	return t
}

// Find returns the plant node with the given name.
func (t *Tree) Find(plant string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.plants[plant]
	return n, ok
}

// Path returns the family, genus and plant nodes leading to plant, root
// first, or nil when the plant is not in the tree.
func (t *Tree) Path(plant string) []*Node {
	n, ok := t.Find(plant)
	if !ok {
		return nil
	}
	var path []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		path = append([]*Node{cur}, path...)
	}
	return path
}

// PlantCount returns the number of distinct plant names.
func (t *Tree) PlantCount() int {
	if t == nil {
		return 0
	}
	return len(t.plants)
}
