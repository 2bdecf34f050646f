package main

// PointInCircle checks if (px, py) lies strictly inside the circle at (cx, cy)
func PointInCircle(px, py, cx, cy, r float64) bool {
	dx := px - cx
	dy := py - cy
	return dx*dx+dy*dy < r*r
}
