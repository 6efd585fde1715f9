package tract

import (
	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
)

// queryTolerance pads point queries so points on a bounding-box edge still
// intersect it; exact containment is decided by the ring test.
const queryTolerance = 1e-7

type boxed struct {
	idx  int
	rect rtreego.Rect
}

func (b *boxed) Bounds() rtreego.Rect { return b.rect }

type index struct {
	tree *rtreego.Rtree
}

func newIndex(tracts []*Tract) (*index, error) {
	objs := make([]rtreego.Spatial, 0, len(tracts))
	for _, t := range tracts {
		b := t.Geom.Bounds()
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{b.Min(0), b.Min(1)},
			rtreego.Point{b.Max(0), b.Max(1)},
		)
		if err != nil {
			return nil, eris.Wrapf(err, "tract: index bounds of tract %s", t.ID)
		}
		objs = append(objs, &boxed{idx: t.Index, rect: rect})
	}
	return &index{tree: rtreego.NewTree(2, 25, 50, objs...)}, nil
}

// candidates returns the layer indexes whose bounding box covers (x, y).
func (ix *index) candidates(x, y float64) []int {
	hits := ix.tree.SearchIntersect(rtreego.Point{x, y}.ToRect(queryTolerance))
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*boxed).idx)
	}
	return out
}
