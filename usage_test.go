// usage_test.go: Tests for usage tracking
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"sync"
	"testing"
)

func TestUsageTracker(t *testing.T) {
	u := NewUsageTracker()
	u.Record("train.lr", 0.1)
	u.Record("val/train.lr", 0.2)
	u.Record("train.lr", 0.3)

	if u.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", u.Len())
	}
	if !u.Has("val/train.lr") || u.Has("missing") {
		t.Error("Has returned wrong results")
	}
	if keys := u.Keys(); keys[0] != "train.lr" || keys[1] != "val/train.lr" {
		t.Errorf("Keys should be sorted, got %v", keys)
	}

	used := u.Used()
	if used["train.lr"] != 0.3 {
		t.Errorf("Later deliveries replace earlier ones, got %v", used["train.lr"])
	}
	used["train.lr"] = 1.0
	if u.Used()["train.lr"] != 0.3 {
		t.Error("Used must return a copy")
	}

	u.Reset()
	if u.Len() != 0 {
		t.Error("Reset should clear the tracker")
	}
}

func TestUsageTrackerConcurrent(t *testing.T) {
	u := NewUsageTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u.Record(fmt.Sprintf("k%d", i), i)
			_ = u.Used()
		}(i)
	}
	wg.Wait()
	if u.Len() != 50 {
		t.Errorf("Expected 50 keys, got %d", u.Len())
	}
}
