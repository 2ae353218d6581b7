// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package grouper

import "testing"

func TestPool_TakeShrinksRemaining(t *testing.T) {
	p := newPool(4)
	if p.size() != 4 {
		t.Fatalf("expected size 4, got %d", p.size())
	}

	p.take(1)
	p.take(3)

	remaining := p.remaining()
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if remaining[0] != 0 || remaining[1] != 2 {
		t.Errorf("expected remaining [0 2], got %v", remaining)
	}
	if p.has(1) {
		t.Error("taken index should not be in pool")
	}
	if !p.has(0) {
		t.Error("untaken index should remain in pool")
	}
}

func TestPool_DoubleTakeIsIdempotent(t *testing.T) {
	p := newPool(2)
	p.take(0)
	p.take(0)
	if p.size() != 1 {
		t.Errorf("expected size 1 after double take, got %d", p.size())
	}
}

func TestPool_OutOfRange(t *testing.T) {
	p := newPool(2)
	if p.has(-1) || p.has(2) {
		t.Error("out of range indices should not be in pool")
	}
	p.take(5) // must not panic
	if p.size() != 2 {
		t.Errorf("expected size 2, got %d", p.size())
	}
}
