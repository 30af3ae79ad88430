package tree

import "math"

// PeerLists holds, per leaf box, the leaf boxes reachable by any query ball
// of radius up to the leaf's half-width centered inside it. They are the
// fast path for the ball queries issued by the refinement checkers; queries
// with larger radii fall back to a full tree descent.
type PeerLists struct {
	Starts []int32
	Lists  []int32
}

// FindPeerLists derives the peer structure from a built tree.
func FindPeerLists(t *Tree) (pl *PeerLists) {
	n := t.NBoxes()
	pl = &PeerLists{Starts: make([]int32, n+1)}
	for b := 0; b < n; b++ {
		pl.Starts[b+1] = pl.Starts[b]
		if !t.IsLeaf[b] {
			continue
		}
		peers := t.appendBoxesIntersectingCube(int32(b), nil)
		pl.Lists = append(pl.Lists, peers...)
		pl.Starts[b+1] += int32(len(peers))
	}
	return
}

// appendBoxesIntersectingCube collects the leaves intersecting box b's
// bounds expanded by its own half-width.
func (t *Tree) appendBoxesIntersectingCube(b int32, out []int32) []int32 {
	var (
		c  = t.BoxCenter[b]
		hw = 2 * t.HalfWidth[b]
	)
	stack := make([]int32, 1, 64)
	stack[0] = 0
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		overlaps := true
		for ax := 0; ax < t.Dim; ax++ {
			if math.Abs(c[ax]-t.BoxCenter[q][ax]) > hw+t.HalfWidth[q] {
				overlaps = false
				break
			}
		}
		if !overlaps {
			continue
		}
		if t.IsLeaf[q] {
			out = append(out, q)
			continue
		}
		for _, ch := range t.Children[q] {
			if ch >= 0 {
				stack = append(stack, ch)
			}
		}
	}
	return out
}

func (pl *PeerLists) Peers(b int32) []int32 {
	return pl.Lists[pl.Starts[b]:pl.Starts[b+1]]
}

// Candidates returns the leaf boxes whose membership lists must be scanned
// for the closed query ball (p, r), appending to buf.
func (pl *PeerLists) Candidates(t *Tree, p [3]float64, r float64, buf []int32) []int32 {
	if leaf := t.LeafContaining(p); leaf >= 0 && r <= t.HalfWidth[leaf] {
		return append(buf, pl.Peers(leaf)...)
	}
	return t.AppendBoxesIntersectingBall(p, r, buf)
}
