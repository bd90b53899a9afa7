// usage.go: Tracking of configuration keys consumed by calls
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"sort"
	"sync"
)

// UsageTracker accumulates every key whose value was delivered to a bound
// call, together with the delivered value. Entries live for the lifetime of
// the tracker unless Reset is called.
type UsageTracker struct {
	mu   sync.Mutex
	used Mapping
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{used: make(Mapping)}
}

// Record stores value under key, replacing an earlier delivery.
func (u *UsageTracker) Record(key string, value any) {
	u.mu.Lock()
	u.used[key] = value
	u.mu.Unlock()
}

// Used returns a copy of the recorded keys and values.
func (u *UsageTracker) Used() Mapping {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.used.Clone()
}

// Has reports whether key was recorded.
func (u *UsageTracker) Has(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.used[key]
	return ok
}

// Keys returns the recorded keys in sorted order.
func (u *UsageTracker) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]string, 0, len(u.used))
	for k := range u.used {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of recorded keys.
func (u *UsageTracker) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.used)
}

// Reset forgets every recorded key.
func (u *UsageTracker) Reset() {
	u.mu.Lock()
	u.used = make(Mapping)
	u.mu.Unlock()
}
