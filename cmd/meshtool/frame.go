package main

import (
	"fmt"
	"math"
)

// checkFrameFlags validates the frame command's view parameters.
func checkFrameFlags(fov, aspect float64) error {
	if math.IsNaN(fov) || fov <= 0 || fov >= 180 {
		return fmt.Errorf("fov %v must be in (0, 180)", fov)
	}
	if math.IsNaN(aspect) || math.IsInf(aspect, 0) || aspect <= 0 {
		return fmt.Errorf("aspect %v must be positive", aspect)
	}
	return nil
}
