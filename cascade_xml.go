package haarface

import (
	"encoding/xml"

	"github.com/pkg/errors"
)

// The OpenCV legacy layout stores every list item in an element named "_".
type xmlStorage struct {
	XMLName  xml.Name     `xml:"opencv_storage"`
	Cascades []xmlCascade `xml:",any"`
}

type xmlCascade struct {
	Size   string     `xml:"size"`
	Stages []xmlStage `xml:"stages>_"`
}

type xmlStage struct {
	Trees     []xmlTree `xml:"trees>_"`
	Threshold *float64  `xml:"stage_threshold"`
}

type xmlTree struct {
	Nodes []xmlNode `xml:"_"`
}

type xmlNode struct {
	Rects     []string `xml:"feature>rects>_"`
	Tilted    int      `xml:"feature>tilted"`
	Threshold *float64 `xml:"threshold"`
	LeftVal   *float64 `xml:"left_val"`
	RightVal  *float64 `xml:"right_val"`
	LeftNode  *int     `xml:"left_node"`
	RightNode *int     `xml:"right_node"`
}

func parseXMLCascade(data []byte) (*Cascade, error) {
	var doc xmlStorage
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing xml cascade")
	}
	if len(doc.Cascades) != 1 {
		return nil, errors.Errorf("expected exactly one classifier, found %d", len(doc.Cascades))
	}
	src := doc.Cascades[0]

	width, height, err := parseSize(src.Size)
	if err != nil {
		return nil, err
	}

	c := &Cascade{
		Width:  width,
		Height: height,
		Stages: make([]Stage, 0, len(src.Stages)),
	}
	for si, xs := range src.Stages {
		if xs.Threshold == nil {
			return nil, errors.Errorf("stage %d: missing stage_threshold", si)
		}
		stage := Stage{
			Threshold: *xs.Threshold,
			Trees:     make([]Tree, 0, len(xs.Trees)),
		}
		for ti, xt := range xs.Trees {
			tree := Tree{Nodes: make([]Node, 0, len(xt.Nodes))}
			for ni, xn := range xt.Nodes {
				node, err := xn.node()
				if err != nil {
					return nil, errors.Wrapf(err, "stage %d tree %d node %d", si, ti, ni)
				}
				tree.Nodes = append(tree.Nodes, node)
			}
			stage.Trees = append(stage.Trees, tree)
		}
		c.Stages = append(c.Stages, stage)
	}
	return c, nil
}

func (xn xmlNode) node() (Node, error) {
	if xn.Tilted != 0 {
		return Node{}, errors.New("tilted features are not supported")
	}
	if xn.Threshold == nil {
		return Node{}, errors.New("missing threshold")
	}
	left, err := parseOutcome("left", xn.LeftVal, xn.LeftNode)
	if err != nil {
		return Node{}, err
	}
	right, err := parseOutcome("right", xn.RightVal, xn.RightNode)
	if err != nil {
		return Node{}, err
	}

	n := Node{
		Rects:     make([]FeatureRect, 0, len(xn.Rects)),
		Threshold: *xn.Threshold,
		Left:      left,
		Right:     right,
	}
	for _, s := range xn.Rects {
		r, err := parseRect(s)
		if err != nil {
			return Node{}, err
		}
		n.Rects = append(n.Rects, r)
	}
	return n, nil
}
