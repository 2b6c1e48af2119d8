package haarface

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Cascade is a trained Haar classifier: an ordered list of boosted stages a window
// has to pass to be reported. The exported fields are checked and indexed when the
// cascade is built by ParseCascade or NewCascade; editing them afterwards is not
// supported and may make Scan panic. A Detector works on its own copy, so the
// cascade it was created from can be modified or reused freely. An unmodified
// Cascade can be shared by any number of concurrent detections.
type Cascade struct {
	// Width and Height are the classifier window size at scale 1.
	Width  int
	Height int
	Stages []Stage

	// rects lists the rectangles of every node; each node knows its offset.
	rects []FeatureRect
}

// Stage is one boosted classifier of the cascade.
type Stage struct {
	Threshold float64
	Trees     []Tree
}

// Tree is a decision tree stored as a node arena. The root is the first node.
type Tree struct {
	Nodes []Node
}

// Node compares a weighted rectangle feature with its threshold and continues
// on the Left outcome when the feature is below it, on the Right one otherwise.
type Node struct {
	Rects     []FeatureRect
	Threshold float64
	Left      Outcome
	Right     Outcome

	first int
}

// Outcome is either a leaf carrying the tree value or a branch to another node of the same tree.
type Outcome struct {
	Leaf  bool
	Value float64
	Node  int
}

// Leaf returns a terminal outcome.
func Leaf(value float64) Outcome {
	return Outcome{Leaf: true, Value: value}
}

// Branch returns an outcome continuing at the node with the given index.
func Branch(node int) Outcome {
	return Outcome{Node: node}
}

// FeatureRect is a weighted rectangle expressed in classifier coordinates.
type FeatureRect struct {
	X      int
	Y      int
	Width  int
	Height int
	Weight float64
}

// LoadCascadeFile reads a classifier definition from disk.
func LoadCascadeFile(path string) (*Cascade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(InvalidCascade, errors.Wrapf(err, "reading cascade %s", path))
	}
	return ParseCascade(data)
}

// LoadCascade reads a classifier definition from r.
func LoadCascade(r io.Reader) (*Cascade, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(InvalidCascade, errors.Wrap(err, "reading cascade"))
	}
	return ParseCascade(data)
}

// ParseCascade parses either an OpenCV haar classifier XML document or its JSON
// counterpart and validates the whole structure, so that scanning never meets
// a dangling node reference.
func ParseCascade(data []byte) (*Cascade, error) {
	var (
		c   *Cascade
		err error
	)
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, errorf(InvalidCascade, "empty cascade definition")
	case trimmed[0] == '<':
		c, err = parseXMLCascade(trimmed)
	case trimmed[0] == '{':
		c, err = parseJSONCascade(trimmed)
	default:
		return nil, errorf(InvalidCascade, "unrecognized cascade format")
	}
	if err != nil {
		return nil, newError(InvalidCascade, err)
	}
	if err := c.validate(); err != nil {
		return nil, newError(InvalidCascade, err)
	}
	c.index()
	return c, nil
}

// parseSize parses the "<width> <height>" classifier size field.
func parseSize(s string) (int, int, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, errors.Errorf("malformed classifier size %q", s)
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, errors.Wrap(err, "classifier width")
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, errors.Wrap(err, "classifier height")
	}
	return w, h, nil
}

// parseRect parses a rectangle serialized as "x y width height weight".
func parseRect(s string) (FeatureRect, error) {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return FeatureRect{}, errors.Errorf("rectangle %q: expected 5 values, got %d", s, len(fields))
	}
	var coords [4]int
	for i := range coords {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return FeatureRect{}, errors.Wrapf(err, "rectangle %q", s)
		}
		coords[i] = v
	}
	weight, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return FeatureRect{}, errors.Wrapf(err, "rectangle %q weight", s)
	}
	return FeatureRect{
		X:      coords[0],
		Y:      coords[1],
		Width:  coords[2],
		Height: coords[3],
		Weight: weight,
	}, nil
}

// parseOutcome builds a tagged outcome from the optional value and node fields
// of one side of a node. Definitions carrying both fields rely on the legacy
// "zero value means follow the node" convention and are rejected: there is no
// way to tell a genuine zero leaf from an unset one.
func parseOutcome(side string, val *float64, node *int) (Outcome, error) {
	switch {
	case val != nil && node != nil:
		return Outcome{}, errors.Errorf("%s outcome has both %s_val and %s_node; ambiguous legacy encoding, migrate the cascade", side, side, side)
	case val != nil:
		return Leaf(*val), nil
	case node != nil:
		return Branch(*node), nil
	}
	return Outcome{}, errors.Errorf("%s outcome has neither %s_val nor %s_node", side, side, side)
}

func (c *Cascade) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid classifier size %dx%d", c.Width, c.Height)
	}
	if len(c.Stages) == 0 {
		return errors.New("cascade has no stages")
	}
	for si, stage := range c.Stages {
		if len(stage.Trees) == 0 {
			return errors.Errorf("stage %d has no trees", si)
		}
		for ti, tree := range stage.Trees {
			if err := c.validateTree(tree); err != nil {
				return errors.Wrapf(err, "stage %d tree %d", si, ti)
			}
		}
	}
	return nil
}

func (c *Cascade) validateTree(t Tree) error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for ni, n := range t.Nodes {
		if len(n.Rects) == 0 {
			return errors.Errorf("node %d has no rectangles", ni)
		}
		for ri, r := range n.Rects {
			if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 ||
				r.X+r.Width > c.Width || r.Y+r.Height > c.Height {
				return errors.Errorf("node %d rectangle %d (%d %d %d %d) outside of the %dx%d classifier",
					ni, ri, r.X, r.Y, r.Width, r.Height, c.Width, c.Height)
			}
		}
		for _, o := range []Outcome{n.Left, n.Right} {
			if !o.Leaf && (o.Node < 0 || o.Node >= len(t.Nodes)) {
				return errors.Errorf("node %d references missing node %d", ni, o.Node)
			}
		}
	}

	// A branch must never lead back to a node on the current path.
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(t.Nodes))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case active:
			return errors.Errorf("cycle through node %d", i)
		case done:
			return nil
		}
		state[i] = active
		for _, o := range []Outcome{t.Nodes[i].Left, t.Nodes[i].Right} {
			if o.Leaf {
				continue
			}
			if err := visit(o.Node); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}
	return visit(0)
}

// index flattens the node rectangles so they can be pre-scaled once per scale level.
func (c *Cascade) index() {
	c.rects = c.rects[:0]
	for si := range c.Stages {
		for ti := range c.Stages[si].Trees {
			nodes := c.Stages[si].Trees[ti].Nodes
			for ni := range nodes {
				nodes[ni].first = len(c.rects)
				c.rects = append(c.rects, nodes[ni].Rects...)
			}
		}
	}
}

// clone returns a deep copy of the cascade, validated and indexed again.
func (c *Cascade) clone() (*Cascade, error) {
	stages := make([]Stage, len(c.Stages))
	for si, st := range c.Stages {
		trees := make([]Tree, len(st.Trees))
		for ti, t := range st.Trees {
			nodes := make([]Node, len(t.Nodes))
			for ni, n := range t.Nodes {
				n.Rects = append([]FeatureRect(nil), n.Rects...)
				nodes[ni] = n
			}
			trees[ti] = Tree{Nodes: nodes}
		}
		stages[si] = Stage{Threshold: st.Threshold, Trees: trees}
	}
	return NewCascade(c.Width, c.Height, stages)
}

// NewCascade assembles a cascade from already decoded stages and validates it.
// The cascade takes ownership of stages.
func NewCascade(width, height int, stages []Stage) (*Cascade, error) {
	c := &Cascade{Width: width, Height: height, Stages: stages}
	if err := c.validate(); err != nil {
		return nil, newError(InvalidCascade, err)
	}
	c.index()
	return c, nil
}
