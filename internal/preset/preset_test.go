package preset

import "testing"

func TestApplyStatus_DetectionOnlyDistinctFromSuccess(t *testing.T) {
	if DetectionOnly == Success {
		t.Fatal("DetectionOnly must be distinguishable from Success by type, not by message text")
	}
}
