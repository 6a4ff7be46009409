// Package export writes generated dungeons as YAML documents.
package export

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
)

// Document is the YAML form of one dungeon
type Document struct {
	Seed        int64           `yaml:"seed"`
	Width       int             `yaml:"width"`
	Height      int             `yaml:"height"`
	Fingerprint string          `yaml:"fingerprint"`
	Rooms       []dungeon.Room  `yaml:"rooms"`
	Doors       []Door          `yaml:"doors,omitempty"`
	Layout      []string        `yaml:"layout"`
	Trace       []dungeon.Event `yaml:"trace,omitempty"`
}

// Door is an opening placed by the door pass. Kind is "door" or "floor".
type Door struct {
	X    int              `yaml:"x"`
	Y    int              `yaml:"y"`
	Kind dungeon.TileKind `yaml:"kind"`
}

// NewDocument collects a finished run. The trace is included only when
// withTrace is set.
func NewDocument(seed int64, g *dungeon.Grid, res *dungeon.Result, withTrace bool) *Document {
	doc := &Document{
		Seed:        seed,
		Width:       g.Width,
		Height:      g.Height,
		Fingerprint: dungeon.Fingerprint(g, res.Trace),
		Rooms:       res.Rooms,
		Layout:      g.Layout(),
	}
	for _, idx := range res.Doors {
		x, y, err := g.Coord(idx)
		if err != nil {
			continue
		}
		doc.Doors = append(doc.Doors, Door{X: x, Y: y, Kind: g.Kinds[idx]})
	}
	if withTrace {
		doc.Trace = res.Trace
	}
	return doc
}

// orderedDocument pins the layout rows to double-quoted scalars so
// leading and trailing blanks survive.
type orderedDocument struct {
	Seed        int64           `yaml:"seed"`
	Width       int             `yaml:"width"`
	Height      int             `yaml:"height"`
	Fingerprint string          `yaml:"fingerprint"`
	Rooms       yaml.Node       `yaml:"rooms"`
	Doors       []Door          `yaml:"doors,omitempty"`
	Layout      yaml.Node       `yaml:"layout"`
	Trace       []dungeon.Event `yaml:"trace,omitempty"`
}

// Write encodes doc to w with a comment header
func Write(w io.Writer, doc *Document) error {
	fmt.Fprintf(w, "# Dungeon %dx%d\n", doc.Width, doc.Height)
	fmt.Fprintf(w, "# Generated with seed: %d\n", doc.Seed)
	fmt.Fprintf(w, "# Room count: %d, door count: %d\n\n", len(doc.Rooms), len(doc.Doors))

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	ordered := &orderedDocument{
		Seed:        doc.Seed,
		Width:       doc.Width,
		Height:      doc.Height,
		Fingerprint: doc.Fingerprint,
		Rooms:       roomsNode(doc.Rooms),
		Doors:       doc.Doors,
		Layout:      layoutNode(doc.Layout),
		Trace:       doc.Trace,
	}
	if err := encoder.Encode(ordered); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteFile writes doc to path
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := Write(f, doc); err != nil {
		return err
	}
	return f.Close()
}

// Read decodes a document written by Write
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return &doc, nil
}

// ReadFile decodes the document at path
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Grid rebuilds the tile grid from the layout rows
func (d *Document) Grid() (*dungeon.Grid, error) {
	g, err := dungeon.ParseLayout(d.Layout)
	if err != nil {
		return nil, err
	}
	if g.Width != d.Width || g.Height != d.Height {
		return nil, fmt.Errorf("%w: layout is %dx%d, header says %dx%d",
			dungeon.ErrInvalidLayout, g.Width, g.Height, d.Width, d.Height)
	}
	return g, nil
}

func layoutNode(rows []string) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Style: yaml.DoubleQuotedStyle,
			Value: row,
		})
	}
	return node
}

// roomsNode writes each room as a flow mapping on one line
func roomsNode(rooms []dungeon.Room) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range rooms {
		room := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		addIntField(room, "x", r.X)
		addIntField(room, "y", r.Y)
		addIntField(room, "width", r.Width)
		addIntField(room, "height", r.Height)
		node.Content = append(node.Content, room)
	}
	return node
}

func addIntField(node *yaml.Node, key string, value int) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(value)},
	)
}
