package util

import "github.com/asecurityteam/rolling"

// CreateRollingWindow creates a window holding the last size points.
func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}
