package headless

import (
	"slices"
	"sync"

	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/hittest"
	"github.com/tidwall/qtree"
)

// symbolTree is a screen-space index of the symbols drawn in one frame.
// Symbols inserted later are drawn on top and are returned first.
type symbolTree struct {
	mu      sync.RWMutex
	symbols []hittest.Feature
	qt      qtree.QTree
}

func newSymbolTree() *symbolTree {
	return &symbolTree{}
}

func (st *symbolTree) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.symbols)
}

// Insert adds a symbol covering a square of the given radius around center.
func (st *symbolTree) Insert(f hittest.Feature, center geo.ScreenPoint, radius float64) {
	min, max := center.Box(radius)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.qt.Insert([2]float64{min.X, min.Y}, [2]float64{max.X, max.Y}, len(st.symbols))
	st.symbols = append(st.symbols, f)
}

// Search returns the symbols intersecting the query box whose layer is in
// q.Layers (every layer when empty), topmost first.
func (st *symbolTree) Search(q hittest.Query) []hittest.Feature {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var ids []int
	st.qt.Search([2]float64{q.Min.X, q.Min.Y}, [2]float64{q.Max.X, q.Max.Y}, func(_, _ [2]float64, data interface{}) bool {
		id := data.(int)
		if len(q.Layers) == 0 || slices.Contains(q.Layers, st.symbols[id].Layer) {
			ids = append(ids, id)
		}
		return true
	})

	slices.SortFunc(ids, func(a, b int) int { return b - a })

	out := make([]hittest.Feature, 0, len(ids))
	for _, id := range ids {
		out = append(out, st.symbols[id])
	}
	return out
}
