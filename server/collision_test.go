package main

import "testing"

func TestPointInCircle(t *testing.T) {
	// Inside
	if !PointInCircle(3, 4, 0, 0, 10) {
		t.Error("point should be inside")
	}

	// On the boundary counts as outside
	if PointInCircle(10, 0, 0, 0, 10) {
		t.Error("boundary point should not count as a hit")
	}

	// Outside
	if PointInCircle(25, 0, 0, 0, 10) {
		t.Error("point should be outside")
	}

	// Same position
	if !PointInCircle(5, 5, 5, 5, 1) {
		t.Error("centre should be inside")
	}
}
