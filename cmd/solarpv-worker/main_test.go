package main

import "testing"

func TestDefaultWorkersIsAtLeastOne(t *testing.T) {
	if got := defaultWorkers(); got < 1 {
		t.Errorf("defaultWorkers() = %d, want >= 1", got)
	}
}
