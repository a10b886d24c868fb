package repository

import "math/rand/v2"

// treap is an order-statistics treap. less defines the in-order sequence;
// every node carries its subtree size so position queries are O(log n).
type treap[K any] struct {
	root *tnode[K]
	less func(a, b K) bool
}

type tnode[K any] struct {
	key   K
	prio  uint64
	left  *tnode[K]
	right *tnode[K]
	size  int
}

func newTreap[K any](less func(a, b K) bool) *treap[K] {
	return &treap[K]{less: less}
}

func nsize[K any](n *tnode[K]) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix[K any](n *tnode[K]) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight[K any](y *tnode[K]) *tnode[K] {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft[K any](x *tnode[K]) *tnode[K] {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func (t *treap[K]) Len() int { return nsize(t.root) }

// Insert adds key. Keys must be unique under less.
func (t *treap[K]) Insert(key K) {
	t.root = t.insert(t.root, key)
}

func (t *treap[K]) insert(n *tnode[K], key K) *tnode[K] {
	if n == nil {
		return &tnode[K]{key: key, prio: rand.Uint64(), size: 1}
	}
	if t.less(key, n.key) {
		n.left = t.insert(n.left, key)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = t.insert(n.right, key)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// Delete removes key if present.
func (t *treap[K]) Delete(key K) {
	t.root = t.delete(t.root, key)
}

func (t *treap[K]) delete(n *tnode[K], key K) *tnode[K] {
	if n == nil {
		return nil
	}
	switch {
	case t.less(key, n.key):
		n.left = t.delete(n.left, key)
	case t.less(n.key, key):
		n.right = t.delete(n.right, key)
	default:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = t.delete(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = t.delete(n.left, key)
		}
	}
	fix(n)
	return n
}

// CountBefore returns the number of keys ordered strictly before key.
func (t *treap[K]) CountBefore(key K) int {
	count := 0
	n := t.root
	for n != nil {
		if t.less(n.key, key) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// Ascend calls fn for each key in order until fn returns false.
func (t *treap[K]) Ascend(fn func(K) bool) {
	ascend(t.root, fn)
}

func ascend[K any](n *tnode[K], fn func(K) bool) bool {
	if n == nil {
		return true
	}
	if !ascend(n.left, fn) {
		return false
	}
	if !fn(n.key) {
		return false
	}
	return ascend(n.right, fn)
}
