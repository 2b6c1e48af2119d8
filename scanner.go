package haarface

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/esimov/haarface/utils"
)

// Edge density range a window must fall into to reach the cascade when pruning is enabled.
const (
	minEdgeDensity = 20
	maxEdgeDensity = 100
)

// Rect is a window position in the scanned image.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ScanStats counts the work done by a single scan.
type ScanStats struct {
	Scales     int `json:"scales"`
	Windows    int `json:"windows"`
	Pruned     int `json:"pruned"`
	Evaluated  int `json:"evaluated"`
	Trees      int `json:"trees"`
	Detections int `json:"detections"`
}

func (s *ScanStats) add(o ScanStats) {
	s.Windows += o.Windows
	s.Pruned += o.Pruned
	s.Evaluated += o.Evaluated
	s.Trees += o.Trees
}

// level is one pass of the sliding window at a fixed scale.
type level struct {
	scale   float64
	width   int
	height  int
	step    int
	invArea float64
	// rects mirrors Cascade.rects with every rectangle scaled to this level.
	rects []FeatureRect
}

type scanJob struct {
	level int
	x     int
}

// scalePlan lists the window sizes to scan, from the smallest to the largest
// one still fitting inside the image. Scales rounding to an empty window are skipped.
func scalePlan(c *Cascade, width, height int, cfg Config) []*level {
	var levels []*level
	cw, ch := float64(c.Width), float64(c.Height)

	for scale := cfg.BaseScale; scale*cw <= float64(width) && scale*ch <= float64(height); scale *= cfg.ScaleIncrement {
		w := int(math.Round(scale * cw))
		h := int(math.Round(scale * ch))
		if w < 1 || h < 1 {
			continue
		}
		l := &level{
			scale:   scale,
			width:   w,
			height:  h,
			step:    utils.Max(1, int(math.Round(float64(w)*cfg.StepFraction))),
			invArea: 1 / float64(w*h),
			rects:   make([]FeatureRect, len(c.rects)),
		}
		for i, r := range c.rects {
			x0 := int(math.Round(float64(r.X) * scale))
			y0 := int(math.Round(float64(r.Y) * scale))
			x1 := int(math.Round(float64(r.X+r.Width) * scale))
			y1 := int(math.Round(float64(r.Y+r.Height) * scale))
			l.rects[i] = FeatureRect{
				X:      x0,
				Y:      y0,
				Width:  x1 - x0,
				Height: y1 - y0,
				Weight: r.Weight,
			}
		}
		levels = append(levels, l)
	}
	return levels
}

// Scan slides the classifier window over every scale of the plan and returns
// the windows accepted by all the cascade stages. The work is split in jobs,
// one per scale level and window column, consumed by a bounded pool of workers.
// Detections are returned in scan order whatever the number of workers.
func Scan(ctx context.Context, c *Cascade, ii *IntegralImage, cfg Config) ([]Rect, ScanStats, error) {
	var stats ScanStats

	if err := cfg.Validate(); err != nil {
		return nil, stats, err
	}
	if len(c.rects) == 0 {
		return nil, stats, errorf(InvalidCascade, "cascade must be built with ParseCascade or NewCascade")
	}
	levels := scalePlan(c, ii.Width, ii.Height, cfg)
	stats.Scales = len(levels)

	var jobs []scanJob
	for li, l := range levels {
		for x := 0; x <= ii.Width-l.width; x += l.step {
			jobs = append(jobs, scanJob{level: li, x: x})
		}
	}
	if len(jobs) == 0 {
		return nil, stats, ctx.Err()
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	workers = utils.Min(workers, len(jobs))

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	results := make([][]Rect, len(jobs))
	workerStats := make([]ScanStats, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(st *ScanStats) {
			defer wg.Done()
			for i := range queue {
				job := jobs[i]
				results[i] = levels[job.level].scanColumn(ctx, c, ii, job.x, st)
			}
		}(&workerStats[w])
	}
	wg.Wait()

	for _, ws := range workerStats {
		stats.add(ws)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	var detections []Rect
	for _, r := range results {
		detections = append(detections, r...)
	}
	stats.Detections = len(detections)

	return detections, stats, nil
}

// scanColumn evaluates every window of the column starting at x, top to bottom.
func (l *level) scanColumn(ctx context.Context, c *Cascade, ii *IntegralImage, x int, st *ScanStats) []Rect {
	var found []Rect

	for y := 0; y <= ii.Height-l.height; y += l.step {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		st.Windows++

		if ii.Gradient != nil {
			density := ii.Gradient.Region(x, y, l.width, l.height) * l.invArea
			if density < minEdgeDensity || density > maxEdgeDensity {
				st.Pruned++
				continue
			}
		}
		st.Evaluated++
		if l.classify(c, ii, x, y, st) {
			found = append(found, Rect{X: x, Y: y, Width: l.width, Height: l.height})
		}
	}
	return found
}

// classify runs the cascade over the window at (x, y) and stops at the first
// stage whose sum does not exceed its threshold.
func (l *level) classify(c *Cascade, ii *IntegralImage, x, y int, st *ScanStats) bool {
	total := ii.Sum.Region(x, y, l.width, l.height)
	totalSq := ii.SumSquared.Region(x, y, l.width, l.height)

	mean := total * l.invArea
	vnorm := 1.0
	if v := totalSq*l.invArea - mean*mean; v > 1 {
		vnorm = math.Sqrt(v)
	}

	for si := range c.Stages {
		stage := &c.Stages[si]
		var sum float64
		for ti := range stage.Trees {
			st.Trees++
			sum += l.evalTree(&stage.Trees[ti], ii, x, y, vnorm)
		}
		if sum <= stage.Threshold {
			return false
		}
	}
	return true
}

func (l *level) evalTree(t *Tree, ii *IntegralImage, x, y int, vnorm float64) float64 {
	n := &t.Nodes[0]
	for {
		var feature float64
		for _, r := range l.rects[n.first : n.first+len(n.Rects)] {
			feature += r.Weight * ii.Sum.Region(x+r.X, y+r.Y, r.Width, r.Height)
		}

		next := n.Right
		if feature*l.invArea < n.Threshold*vnorm {
			next = n.Left
		}
		if next.Leaf {
			return next.Value
		}
		n = &t.Nodes[next.Node]
	}
}
