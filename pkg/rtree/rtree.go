// Package rtree indexes map pins in percent space with an R-Tree so that
// pins crowding the same spot on the map image can be found quickly.
package rtree

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/1F47E/mappins/pkg/models"
)

const (
	tolerance   = 0.0001
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
)

// spatialPin wraps a pin to implement rtreego.Spatial interface
type spatialPin struct {
	pin   models.Pin
	order int
	rect  *rtreego.Rect
}

func (sp *spatialPin) Bounds() *rtreego.Rect {
	return sp.rect
}

// Overlap is a pair of pins drawn close enough to cover each other
type Overlap struct {
	A models.Pin `json:"a"`
	B models.Pin `json:"b"`
	// Separation is the distance between the pins in map percent.
	Separation float64 `json:"separation"`
	// DistanceKm is the great-circle distance between the locations.
	DistanceKm float64 `json:"distance_km"`
}

// PinIndex is a thread-safe R-Tree over pin positions
type PinIndex struct {
	tree  *rtreego.Rtree
	items []*spatialPin
	mu    sync.RWMutex
}

// NewPinIndex creates an empty pin index
func NewPinIndex() *PinIndex {
	return &PinIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Add indexes pins, keeping their order for stable results
func (p *PinIndex) Add(pins []models.Pin) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pin := range pins {
		item := &spatialPin{
			pin:   pin,
			order: len(p.items),
			rect:  rtreego.Point{pin.X, pin.Y}.ToRect(tolerance),
		}
		p.tree.Insert(item)
		p.items = append(p.items, item)
	}
}

// Count returns the number of indexed pins
func (p *PinIndex) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// QueryBox returns the pins inside box, bounds inclusive, in insertion order
func (p *PinIndex) QueryBox(box models.BoundingBox) ([]models.Pin, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if box.BottomRight.X < box.TopLeft.X || box.BottomRight.Y < box.TopLeft.Y {
		return nil, fmt.Errorf("invalid bounding box: %+v", box)
	}

	bounds, err := rtreego.NewRect(
		rtreego.Point{box.TopLeft.X - tolerance, box.TopLeft.Y - tolerance},
		[]float64{
			box.BottomRight.X - box.TopLeft.X + 2*tolerance,
			box.BottomRight.Y - box.TopLeft.Y + 2*tolerance,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	var matches []*spatialPin
	for _, result := range p.tree.SearchIntersect(bounds) {
		item, ok := result.(*spatialPin)
		if !ok {
			continue
		}

		// Strict boundary check
		if item.pin.X >= box.TopLeft.X && item.pin.X <= box.BottomRight.X &&
			item.pin.Y >= box.TopLeft.Y && item.pin.Y <= box.BottomRight.Y {
			matches = append(matches, item)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].order < matches[j].order
	})

	pins := make([]models.Pin, len(matches))
	for i, item := range matches {
		pins[i] = item.pin
	}
	return pins, nil
}

// Nearest returns up to n pins closest to the given map position
func (p *PinIndex) Nearest(pos models.Position, n int) []models.Pin {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if n <= 0 || len(p.items) == 0 {
		return nil
	}

	results := p.tree.NearestNeighbors(n, rtreego.Point{pos.X, pos.Y})

	items := make([]*spatialPin, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialPin); ok {
			items = append(items, item)
		}
	}

	// rtreego ranks by bounding rect; order by exact distance with stable ties
	sort.SliceStable(items, func(i, j int) bool {
		di := separation(pos, items[i].pin)
		dj := separation(pos, items[j].pin)
		if di != dj {
			return di < dj
		}
		return items[i].order < items[j].order
	})

	pins := make([]models.Pin, len(items))
	for i, item := range items {
		pins[i] = item.pin
	}
	return pins
}

// Overlaps returns every pair of pins no more than radius map-percent apart.
// Pairs are listed once, ordered by the position of their pins in the index.
func (p *PinIndex) Overlaps(radius float64) ([]Overlap, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("invalid overlap radius: %v", radius)
	}

	type pair struct {
		a, b *spatialPin
		sep  float64
	}
	var pairs []pair

	for _, item := range p.items {
		pos := models.Position{X: item.pin.X, Y: item.pin.Y}
		bounds, err := rtreego.NewRect(
			rtreego.Point{pos.X - radius - tolerance, pos.Y - radius - tolerance},
			[]float64{2 * (radius + tolerance), 2 * (radius + tolerance)},
		)
		if err != nil {
			return nil, fmt.Errorf("invalid overlap search: %w", err)
		}

		for _, result := range p.tree.SearchIntersect(bounds) {
			other, ok := result.(*spatialPin)
			if !ok || other.order <= item.order {
				continue
			}
			if sep := separation(pos, other.pin); sep <= radius {
				pairs = append(pairs, pair{a: item, b: other, sep: sep})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a.order != pairs[j].a.order {
			return pairs[i].a.order < pairs[j].a.order
		}
		return pairs[i].b.order < pairs[j].b.order
	})

	overlaps := make([]Overlap, len(pairs))
	for i, pr := range pairs {
		overlaps[i] = Overlap{
			A:          pr.a.pin,
			B:          pr.b.pin,
			Separation: pr.sep,
			DistanceKm: Distance(pr.a.pin, pr.b.pin),
		}
	}
	return overlaps, nil
}

// separation is the Euclidean distance in map percent
func separation(pos models.Position, pin models.Pin) float64 {
	return math.Hypot(pin.X-pos.X, pin.Y-pos.Y)
}
