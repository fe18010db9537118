package kdbush

import (
	"math"
)

type Point[T any] struct {
	X, Y float64
	Data T
}

// KDBush is a static 2d index over a fixed set of points. It is built once and
// never mutated; rebuild it when the point set changes.
type KDBush[T any] struct {
	NodeSize int
	Points   []Point[T]

	idxs   []int
	coords []float64
}

func NewBush[T any](points []Point[T], nodeSize int) *KDBush[T] {
	if nodeSize <= 0 {
		nodeSize = 64
	}
	b := &KDBush[T]{
		NodeSize: nodeSize,
		Points:   points,
		idxs:     make([]int, len(points)),
		coords:   make([]float64, 2*len(points)),
	}
	for i, p := range points {
		b.idxs[i] = i
		b.coords[2*i] = p.X
		b.coords[2*i+1] = p.Y
	}
	b.sort(0, len(b.idxs)-1, 0)
	return b
}

func (b *KDBush[T]) Len() int {
	return len(b.Points)
}

// Range returns indexes into Points of every item inside the box.
func (b *KDBush[T]) Range(minX, minY, maxX, maxY float64) []int {
	result := []int{}
	b.visit(
		func(x, y float64) bool { return x >= minX && x <= maxX && y >= minY && y <= maxY },
		func(axis int, x, y float64) (bool, bool) {
			if axis == 0 {
				return minX <= x, maxX >= x
			}
			return minY <= y, maxY >= y
		},
		func(i int) bool {
			result = append(result, i)
			return true
		},
	)
	return result
}

// Within calls handler with the index of every item in the radius around (qx, qy).
// Returning false from handler stops the search.
func (b *KDBush[T]) Within(qx, qy, radius float64, handler func(i int) bool) {
	r2 := radius * radius
	b.visit(
		func(x, y float64) bool { return sqDist(x, y, qx, qy) <= r2 },
		func(axis int, x, y float64) (bool, bool) {
			if axis == 0 {
				return qx-radius <= x, qx+radius >= x
			}
			return qy-radius <= y, qy+radius >= y
		},
		handler,
	)
}

// WithinIdxs is Within collected into a slice.
func (b *KDBush[T]) WithinIdxs(qx, qy, radius float64) []int {
	result := []int{}
	b.Within(qx, qy, radius, func(i int) bool {
		result = append(result, i)
		return true
	})
	return result
}

func (b *KDBush[T]) visit(
	match func(x, y float64) bool,
	descend func(axis int, x, y float64) (left, right bool),
	handler func(i int) bool,
) {
	if len(b.idxs) == 0 {
		return
	}
	stack := []int{0, len(b.idxs) - 1, 0}

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= b.NodeSize {
			for i := left; i <= right; i++ {
				if match(b.coords[2*i], b.coords[2*i+1]) && !handler(b.idxs[i]) {
					return
				}
			}
			continue
		}

		m := (left + right) >> 1
		x := b.coords[2*m]
		y := b.coords[2*m+1]
		if match(x, y) && !handler(b.idxs[m]) {
			return
		}

		nextAxis := 1 - axis
		goLeft, goRight := descend(axis, x, y)
		if goLeft {
			stack = append(stack, left, m-1, nextAxis)
		}
		if goRight {
			stack = append(stack, m+1, right, nextAxis)
		}
	}
}

func (b *KDBush[T]) sort(left, right, axis int) {
	if right-left <= b.NodeSize {
		return
	}
	m := (left + right) >> 1
	b.selectK(m, left, right, axis)
	b.sort(left, m-1, 1-axis)
	b.sort(m+1, right, 1-axis)
}

// selectK is Floyd-Rivest selection: it reorders [left, right] so that the
// k-th element sits in place with smaller coordinates before it.
func (b *KDBush[T]) selectK(k, left, right, axis int) {
	for right > left {
		if right-left > 600 {
			n := float64(right - left + 1)
			m := float64(k - left + 1)
			z := math.Log(n)
			s := 0.5 * math.Exp(2*z/3)
			sd := 0.5 * math.Sqrt(z*s*(n-s)/n)
			if m-n/2 < 0 {
				sd = -sd
			}
			newLeft := max(left, int(math.Floor(float64(k)-m*s/n+sd)))
			newRight := min(right, int(math.Floor(float64(k)+(n-m)*s/n+sd)))
			b.selectK(k, newLeft, newRight, axis)
		}

		t := b.coords[2*k+axis]
		i, j := left, right

		b.swap(left, k)
		if b.coords[2*right+axis] > t {
			b.swap(left, right)
		}

		for i < j {
			b.swap(i, j)
			i++
			j--
			for b.coords[2*i+axis] < t {
				i++
			}
			for b.coords[2*j+axis] > t {
				j--
			}
		}

		if b.coords[2*left+axis] == t {
			b.swap(left, j)
		} else {
			j++
			b.swap(j, right)
		}

		if j <= k {
			left = j + 1
		}
		if k <= j {
			right = j - 1
		}
	}
}

func (b *KDBush[T]) swap(i, j int) {
	b.idxs[i], b.idxs[j] = b.idxs[j], b.idxs[i]
	b.coords[2*i], b.coords[2*j] = b.coords[2*j], b.coords[2*i]
	b.coords[2*i+1], b.coords[2*j+1] = b.coords[2*j+1], b.coords[2*i+1]
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}
