package haarface

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type jsonCascade struct {
	Size   string      `json:"size"`
	Stages []jsonStage `json:"stages"`
}

type jsonStage struct {
	Threshold *float64     `json:"stage_threshold"`
	Trees     [][]jsonNode `json:"trees"`
}

type jsonNode struct {
	Feature   []string `json:"feature"`
	Tilted    int      `json:"tilted"`
	Threshold *float64 `json:"threshold"`
	LeftVal   *float64 `json:"left_val"`
	RightVal  *float64 `json:"right_val"`
	LeftNode  *int     `json:"left_node"`
	RightNode *int     `json:"right_node"`
}

func parseJSONCascade(data []byte) (*Cascade, error) {
	var src jsonCascade
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, errors.Wrap(err, "parsing json cascade")
	}
	width, height, err := parseSize(src.Size)
	if err != nil {
		return nil, err
	}

	c := &Cascade{
		Width:  width,
		Height: height,
		Stages: make([]Stage, 0, len(src.Stages)),
	}
	for si, js := range src.Stages {
		if js.Threshold == nil {
			return nil, errors.Errorf("stage %d: missing stage_threshold", si)
		}
		stage := Stage{Threshold: *js.Threshold}
		for ti, nodes := range js.Trees {
			var tree Tree
			for ni, jn := range nodes {
				// Same field set as the XML layout.
				node, err := xmlNode{
					Rects:     jn.Feature,
					Tilted:    jn.Tilted,
					Threshold: jn.Threshold,
					LeftVal:   jn.LeftVal,
					RightVal:  jn.RightVal,
					LeftNode:  jn.LeftNode,
					RightNode: jn.RightNode,
				}.node()
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
