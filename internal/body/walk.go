package body

// Body is a developed robot structure.
type Body struct {
	Core *Core
}

func New() *Body {
	return &Body{Core: NewCore(0)}
}

// Walk visits root and its descendants depth first in slot order. Parts in
// exclude are not visited; their subtrees still are.
func Walk(root Part, exclude []Part, fn func(Part)) {
	if root == nil {
		return
	}
	skip := make(map[Part]struct{}, len(exclude))
	for _, p := range exclude {
		skip[p] = struct{}{}
	}
	walk(root, skip, fn)
}

func walk(p Part, skip map[Part]struct{}, fn func(Part)) {
	if _, ok := skip[p]; !ok {
		fn(p)
	}
	for _, child := range p.Children() {
		walk(child, skip, fn)
	}
}

// Find returns every part of type T under root, in depth-first order,
// leaving out the excluded parts.
func Find[T Part](root Part, exclude ...Part) []T {
	var out []T
	Walk(root, exclude, func(p Part) {
		if typed, ok := p.(T); ok {
			out = append(out, typed)
		}
	})
	return out
}

// Parts returns every part under root except the excluded ones.
func Parts(root Part, exclude ...Part) []Part {
	return Find[Part](root, exclude...)
}

func (b *Body) ActiveHinges() []*ActiveHinge {
	if b == nil || b.Core == nil {
		return nil
	}
	return Find[*ActiveHinge](b.Core)
}

func (b *Body) Mass() float64 {
	if b == nil || b.Core == nil {
		return 0
	}
	total := 0.0
	Walk(b.Core, nil, func(p Part) { total += p.Mass() })
	return total
}

// Depth is the number of parts on the longest path from the core.
func (b *Body) Depth() int {
	if b == nil || b.Core == nil {
		return 0
	}
	return depth(b.Core)
}

func depth(p Part) int {
	best := 0
	for _, child := range p.Children() {
		if d := depth(child); d > best {
			best = d
		}
	}
	return best + 1
}
