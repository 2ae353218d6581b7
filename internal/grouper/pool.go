// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package grouper

// pool is the owned, single-writer set of ungrouped record indices
// threaded through the grouping passes. A record taken by one pass is
// invisible to every later search, which is what makes chains disjoint.
type pool struct {
	active []bool
	count  int
}

func newPool(n int) *pool {
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}
	return &pool{active: active, count: n}
}

// has reports whether index i is still ungrouped
func (p *pool) has(i int) bool {
	return i >= 0 && i < len(p.active) && p.active[i]
}

// take removes index i from the pool
func (p *pool) take(i int) {
	if p.has(i) {
		p.active[i] = false
		p.count--
	}
}

// remaining returns the ungrouped indices in ascending order
func (p *pool) remaining() []int {
	out := make([]int, 0, p.count)
	for i, a := range p.active {
		if a {
			out = append(out, i)
		}
	}
	return out
}

// size returns how many records are still ungrouped
func (p *pool) size() int {
	return p.count
}
