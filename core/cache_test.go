package core

import (
	"testing"
	"time"
)

func TestCacheTTL(t *testing.T) {
	now := time.Now()
	cache := NewCache()
	cache.nowFunc = func() time.Time { return now }

	cache.Set("students:all", []string{"S1"}, 5*time.Minute)
	cache.Set("classes:all", []string{"C1"}, 0) // no TTL

	if _, ok := cache.Get("students:all"); !ok {
		t.Error("Get() fresh entry not found")
	}

	// advance past the TTL
	now = now.Add(5*time.Minute + time.Second)
	if _, ok := cache.Get("students:all"); ok {
		t.Error("Get() returned an expired entry")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %v, want 1 (expired entry evicted on Get)", cache.Len())
	}
	if _, ok := cache.Get("classes:all"); !ok {
		t.Error("Get() TTL-less entry expired")
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache()
	cache.Set("students:all", 1, 0)
	cache.Set("students:index:lectureId+studentId", 2, 0)
	cache.Set("students", 3, 0)
	cache.Set("studentsextra", 4, 0)
	cache.Set("classes:all", 5, 0)

	cache.Clear("students")

	for _, key := range []string{"students:all", "students:index:lectureId+studentId", "students"} {
		if _, ok := cache.Get(key); ok {
			t.Errorf("Get(%q) found entry after Clear", key)
		}
	}
	for _, key := range []string{"studentsextra", "classes:all"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("Get(%q) entry lost to an unrelated Clear", key)
		}
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len() = %v after full Clear, want 0", cache.Len())
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("students", "all"); got != "students:all" {
		t.Errorf("CacheKey() = %v, want students:all", got)
	}
}
