package haarface

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXMLCascade = `<?xml version="1.0"?>
<opencv_storage>
<haarcascade_test type_id="opencv-haar-classifier">
  <size>20 24</size>
  <stages>
    <_>
      <!-- stage 0 -->
      <trees>
        <_>
          <!-- tree 0 -->
          <_>
            <feature>
              <rects>
                <_>0 0 20 12 -1.</_>
                <_>0 12 20 12 1.</_></rects>
              <tilted>0</tilted></feature>
            <threshold>4.0e-03</threshold>
            <left_node>1</left_node>
            <right_val>0.8</right_val></_>
          <_>
            <feature>
              <rects>
                <_>5 5 10 10 2.</_></rects>
              <tilted>0</tilted></feature>
            <threshold>-0.5</threshold>
            <left_val>-0.25</left_val>
            <right_val>0.</right_val></_></_>
        <_>
          <!-- tree 1 -->
          <_>
            <feature>
              <rects>
                <_>2 3 4 5 -1.</_></rects>
              <tilted>0</tilted></feature>
            <threshold>0.1</threshold>
            <left_val>0.3</left_val>
            <right_val>-0.3</right_val></_></_></trees>
      <stage_threshold>0.25</stage_threshold>
      <parent>-1</parent>
      <next>-1</next></_>
    <_>
      <!-- stage 1 -->
      <trees>
        <_>
          <_>
            <feature>
              <rects>
                <_>0 0 20 24 1.</_></rects>
              <tilted>0</tilted></feature>
            <threshold>1.5</threshold>
            <left_val>1</left_val>
            <right_val>-1</right_val></_></_></trees>
      <stage_threshold>-1.5</stage_threshold>
      <parent>0</parent>
      <next>-1</next></_></stages></haarcascade_test>
</opencv_storage>
`

const sampleJSONCascade = `{
  "size": "20 24",
  "stages": [
    {
      "stage_threshold": 0.25,
      "trees": [
        [
          {"feature": ["0 0 20 12 -1.", "0 12 20 12 1."], "threshold": 4.0e-03, "left_node": 1, "right_val": 0.8},
          {"feature": ["5 5 10 10 2."], "threshold": -0.5, "left_val": -0.25, "right_val": 0}
        ],
        [
          {"feature": ["2 3 4 5 -1."], "threshold": 0.1, "left_val": 0.3, "right_val": -0.3}
        ]
      ]
    },
    {
      "stage_threshold": -1.5,
      "trees": [
        [
          {"feature": ["0 0 20 24 1."], "threshold": 1.5, "left_val": 1, "right_val": -1}
        ]
      ]
    }
  ]
}`

func TestCascade_ParseXML(t *testing.T) {
	c, err := ParseCascade([]byte(sampleXMLCascade))
	require.NoError(t, err)

	assert.Equal(t, 20, c.Width)
	assert.Equal(t, 24, c.Height)
	require.Len(t, c.Stages, 2)
	assert.Equal(t, 0.25, c.Stages[0].Threshold)
	assert.Equal(t, -1.5, c.Stages[1].Threshold)
	require.Len(t, c.Stages[0].Trees, 2)

	root := c.Stages[0].Trees[0].Nodes[0]
	assert.Equal(t, []FeatureRect{
		{X: 0, Y: 0, Width: 20, Height: 12, Weight: -1},
		{X: 0, Y: 12, Width: 20, Height: 12, Weight: 1},
	}, root.Rects)
	assert.Equal(t, 0.004, root.Threshold)
	assert.Equal(t, Branch(1), root.Left)
	assert.Equal(t, Leaf(0.8), root.Right)

	// A zero leaf is a genuine leaf, not a reference to the root.
	child := c.Stages[0].Trees[0].Nodes[1]
	assert.Equal(t, Leaf(-0.25), child.Left)
	assert.Equal(t, Leaf(0), child.Right)
	assert.True(t, child.Right.Leaf)

	assert.Len(t, c.rects, 5)
	assert.Equal(t, 2, child.first)
	assert.Equal(t, 4, c.Stages[1].Trees[0].Nodes[0].first)
}

func TestCascade_JSONMatchesXML(t *testing.T) {
	fromXML, err := ParseCascade([]byte(sampleXMLCascade))
	require.NoError(t, err)

	fromJSON, err := LoadCascade(strings.NewReader("\n  " + sampleJSONCascade))
	require.NoError(t, err)

	assert.Equal(t, fromXML, fromJSON)
}

func TestCascade_LoadFile(t *testing.T) {
	_, err := LoadCascadeFile("testdata/missing.xml")
	assert.True(t, errors.Is(err, ErrInvalidCascade))
}

func TestCascade_NewCascadeValidates(t *testing.T) {
	_, err := NewCascade(24, 24, nil)
	assert.True(t, errors.Is(err, ErrInvalidCascade))

	c := whitePatchCascade(t)
	assert.Len(t, c.rects, 1)
}

// jsonDoc builds a single stage, single tree cascade around the given nodes.
func jsonDoc(size string, nodes ...string) string {
	return fmt.Sprintf(`{"size": %q, "stages": [{"stage_threshold": 0.5, "trees": [[%s]]}]}`,
		size, strings.Join(nodes, ","))
}

func TestCascade_Invalid(t *testing.T) {
	leafNode := `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_val": 0, "right_val": 1}`

	testCases := []struct {
		name string
		doc  string
	}{
		{"empty", "   "},
		{"unknown format", "size: 24 24"},
		{"malformed xml", "<opencv_storage><face>"},
		{"malformed json", `{"size": `},
		{"two classifiers", `<opencv_storage><a><size>4 4</size></a><b><size>4 4</size></b></opencv_storage>`},
		{"missing size", jsonDoc("", leafNode)},
		{"zero size", jsonDoc("0 24", leafNode)},
		{"negative size", jsonDoc("24 -1", leafNode)},
		{"no stages", `{"size": "24 24", "stages": []}`},
		{"no trees", `{"size": "24 24", "stages": [{"stage_threshold": 0.5, "trees": []}]}`},
		{"no nodes", `{"size": "24 24", "stages": [{"stage_threshold": 0.5, "trees": [[]]}]}`},
		{"missing stage threshold", `{"size": "24 24", "stages": [{"trees": [[` + leafNode + `]]}]}`},
		{"no rectangles", jsonDoc("24 24", `{"feature": [], "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"rectangle arity", jsonDoc("24 24", `{"feature": ["0 0 4 4"], "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"rectangle value", jsonDoc("24 24", `{"feature": ["0 0 4 x 1."], "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"rectangle outside", jsonDoc("24 24", `{"feature": ["20 0 5 4 1."], "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"empty rectangle", jsonDoc("24 24", `{"feature": ["0 0 0 4 1."], "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"tilted", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "tilted": 1, "threshold": 1, "left_val": 0, "right_val": 1}`)},
		{"missing threshold", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "left_val": 0, "right_val": 1}`)},
		{"ambiguous outcome", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_val": 0, "left_node": 0, "right_val": 1}`)},
		{"missing outcome", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_val": 0}`)},
		{"branch out of range", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_node": 1, "right_val": 1}`)},
		{"negative branch", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_node": -1, "right_val": 1}`)},
		{"self loop", jsonDoc("24 24", `{"feature": ["0 0 4 4 1."], "threshold": 1, "left_node": 0, "right_val": 1}`)},
		{"cycle", jsonDoc("24 24",
			`{"feature": ["0 0 4 4 1."], "threshold": 1, "left_node": 1, "right_val": 1}`,
			`{"feature": ["0 0 4 4 1."], "threshold": 1, "left_val": 1, "right_node": 0}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseCascade([]byte(tc.doc))
			assert.Nil(t, c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCascade), "unexpected error: %v", err)

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, InvalidCascade, e.Kind)
		})
	}
}

func TestCascade_SharedNodesAreNotCycles(t *testing.T) {
	// Both sides of the root lead to the same node.
	doc := jsonDoc("24 24",
		`{"feature": ["0 0 4 4 1."], "threshold": 1, "left_node": 1, "right_node": 1}`,
		`{"feature": ["0 0 4 4 1."], "threshold": 1, "left_val": 0, "right_val": 1}`)

	_, err := ParseCascade([]byte(doc))
	assert.NoError(t, err)
}
