package kgstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

// Limits bounds query results. Hidden lists predicate labels never shown.
type Limits struct {
	Hidden        []string
	MaxResults    int // links returned by Query
	MaxProperties int // properties returned by Details
}

// DefaultLimits matches the service defaults.
func DefaultLimits() Limits {
	return Limits{Hidden: []string{"特征"}, MaxResults: 100, MaxProperties: 20}
}

func (l Limits) hidden() map[string]bool {
	m := make(map[string]bool, len(l.Hidden))
	for _, h := range l.Hidden {
		m[h] = true
	}
	return m
}

// nodeIndex collects node metadata keeping the first assignment per ID.
type nodeIndex struct {
	order []string
	meta  map[string]graphstate.NodeMeta
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{meta: make(map[string]graphstate.NodeMeta)}
}

func (n *nodeIndex) add(id, typ, color string) {
	if _, ok := n.meta[id]; ok {
		return
	}
	n.order = append(n.order, id)
	n.meta[id] = graphstate.NodeMeta{Type: typ, Color: color}
}

// Query returns the triples whose subject label equals term, ignoring case
// and surrounding space, as a subgraph. A blank term yields an empty graph.
func (s *Store) Query(ctx context.Context, term string, lim Limits) (kgapi.Subgraph, error) {
	out := kgapi.Subgraph{Nodes: []graphstate.Node{}, Links: []graphstate.Link{}}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s, o, p_label FROM triples WHERE s_label_lc = ? ORDER BY seq`, term)
	if err != nil {
		return out, fmt.Errorf("query %q: %w", term, err)
	}
	defer rows.Close()

	hidden := lim.hidden()
	nodes := newNodeIndex()
	for rows.Next() {
		var subj, obj, pred string
		if err := rows.Scan(&subj, &obj, &pred); err != nil {
			return out, fmt.Errorf("scan triple: %w", err)
		}
		if hidden[pred] {
			continue
		}
		out.Links = append(out.Links, graphstate.Link{Source: subj, Target: obj, Label: pred})
		nodes.add(subj, PlantType, PlantColor)
		typ, color := TypeColor(pred)
		nodes.add(obj, typ, color)
		if lim.MaxResults > 0 && len(out.Links) >= lim.MaxResults {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("query %q: %w", term, err)
	}

	for _, id := range nodes.order {
		m := nodes.meta[id]
		out.Nodes = append(out.Nodes, graphstate.Node{ID: id, Type: m.Type, Color: m.Color})
	}
	return out, nil
}

// Details returns the properties of entity in both directions: for triples
// with the entity as subject the object is reported, for triples with it as
// object the subject is. node_info covers every related entity, including
// those beyond the property limit.
func (s *Store) Details(ctx context.Context, entity string, lim Limits) (kgapi.Details, error) {
	entity = strings.TrimSpace(entity)
	out := kgapi.Details{
		Entity:     entity,
		Properties: []graphstate.Property{},
		NodeInfo:   map[string]graphstate.NodeMeta{},
	}
	if entity == "" {
		return out, nil
	}
	hidden := lim.hidden()

	rows, err := s.db.QueryContext(ctx,
		`SELECT s, o, p_label FROM triples WHERE s = ? OR o = ? ORDER BY seq`, entity, entity)
	if err != nil {
		return out, fmt.Errorf("details %q: %w", entity, err)
	}
	var props []graphstate.Property
	related := make(map[string]bool)
	var relatedList []string
	for rows.Next() {
		var subj, obj, pred string
		if err := rows.Scan(&subj, &obj, &pred); err != nil {
			rows.Close()
			return out, fmt.Errorf("scan triple: %w", err)
		}
		if hidden[pred] {
			continue
		}
		other := obj
		if subj != entity {
			other = subj
		}
		props = append(props, graphstate.Property{Predicate: pred, Object: other})
		if !related[other] {
			related[other] = true
			relatedList = append(relatedList, other)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("details %q: %w", entity, err)
	}
	if len(props) == 0 {
		return out, nil
	}

	if lim.MaxProperties > 0 && len(props) > lim.MaxProperties {
		props = props[:lim.MaxProperties]
	}
	out.Properties = props

	info, err := s.nodeInfo(ctx, relatedList, related, hidden)
	if err != nil {
		return out, err
	}
	out.NodeInfo = info
	return out, nil
}

// nodeInfo types each related entity by its first appearance in the graph:
// as a subject it is a plant, as an object it takes the predicate's type.
func (s *Store) nodeInfo(ctx context.Context, ids []string, related, hidden map[string]bool) (map[string]graphstate.NodeMeta, error) {
	arg, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s, o, p_label FROM triples
		WHERE s IN (SELECT value FROM json_each(?1)) OR o IN (SELECT value FROM json_each(?1))
		ORDER BY seq
	`, string(arg))
	if err != nil {
		return nil, fmt.Errorf("node info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]graphstate.NodeMeta, len(ids))
	for rows.Next() {
		var subj, obj, pred string
		if err := rows.Scan(&subj, &obj, &pred); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		if hidden[pred] {
			continue
		}
		if related[subj] {
			if _, ok := info[subj]; !ok {
				info[subj] = graphstate.NodeMeta{Type: PlantType, Color: PlantColor}
			}
		}
		if related[obj] {
			if _, ok := info[obj]; !ok {
				typ, color := TypeColor(pred)
				info[obj] = graphstate.NodeMeta{Type: typ, Color: color}
			}
		}
		if len(info) == len(ids) {
			break
		}
	}
	return info, rows.Err()
}

// StructuredInfo collects every predicate of the subject labelled name.
// Hidden predicates are included; URI objects are reduced to their label.
func (s *Store) StructuredInfo(ctx context.Context, name string) (kgapi.PlantInfo, error) {
	name = strings.TrimSpace(name)
	info := kgapi.PlantInfo{}
	if name == "" {
		return info, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p_label, o, o_label FROM triples WHERE s_label = ? ORDER BY seq`, name)
	if err != nil {
		return info, fmt.Errorf("structured info %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pred, obj string
		var objLabel sql.NullString
		if err := rows.Scan(&pred, &obj, &objLabel); err != nil {
			return info, fmt.Errorf("scan triple: %w", err)
		}
		val := obj
		if isURI(obj) && objLabel.Valid {
			val = objLabel.String
		}
		info[pred] = append(info[pred], val)
	}
	return info, rows.Err()
}
