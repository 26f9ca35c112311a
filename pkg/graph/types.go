package graph

import "encoding/json"

// Document is the canonical serialization format for dependency graphs.
// Used for CLI output, persistence, and caching. The format is
// human-readable and stable: nodes and edges appear in deterministic order
// so the same graph always serializes to identical bytes.
type Document struct {
	Nodes []NodeDoc `json:"nodes" bson:"nodes"`
	Edges []EdgeDoc `json:"edges" bson:"edges"`
}

// NodeDoc is the serialized form of a node.
type NodeDoc struct {
	ID       string `json:"id" bson:"id"`
	External bool   `json:"external,omitempty" bson:"external,omitempty"`
}

// EdgeDoc is the serialized form of an edge. Endpoints are canonical
// identities rather than arena indices so documents survive re-import.
type EdgeDoc struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
	Kind string `json:"kind" bson:"kind"`
}

// ToDocument converts a graph to its serialization format.
func (g *Graph) ToDocument() Document {
	doc := Document{
		Nodes: make([]NodeDoc, len(g.nodes)),
		Edges: make([]EdgeDoc, 0, g.internal+g.external),
	}
	for i, n := range g.nodes {
		doc.Nodes[i] = NodeDoc{ID: n.ID.String(), External: n.External}
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			From: g.nodes[e.From].ID.String(),
			To:   g.nodes[e.To].ID.String(),
			Kind: e.Kind.String(),
		})
	}
	return doc
}

// Units converts a document back into raw builder units, allowing an
// exported graph to be re-analyzed without rescanning the source tree.
// External nodes are dropped from the unit list; they are re-derived as
// external targets during the rebuild.
func (d Document) Units() []Unit {
	imports := make(map[string][]string, len(d.Nodes))
	for _, n := range d.Nodes {
		if !n.External {
			imports[n.ID] = nil
		}
	}
	for _, e := range d.Edges {
		if _, ok := imports[e.From]; ok {
			imports[e.From] = append(imports[e.From], e.To)
		}
	}

	units := make([]Unit, 0, len(imports))
	for id, targets := range imports {
		units = append(units, Unit{RawSourceID: id, RawImports: targets})
	}
	return units
}

// UnmarshalDocument deserializes JSON bytes to a Document.
func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, err
	}
	return d, nil
}
