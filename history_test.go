package hxdrive

import (
	"testing"
	"time"
)

func entry(url, content string) HistoryEntry {
	return HistoryEntry{
		URL:       url,
		Content:   content,
		Scroll:    ScrollState{TargetID: "top", Position: "top"},
		Timestamp: time.Now(),
	}
}

func TestHistoryCacheRoundTrip(t *testing.T) {
	c := newHistoryCache(5)
	if err := c.put(entry("/a", "<p>alpha</p>")); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.get("/a")
	if err != nil || !ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	if got.Content != "<p>alpha</p>" || got.URL != "/a" {
		t.Errorf("entry = %+v", got)
	}
	if got.Scroll.TargetID != "top" {
		t.Errorf("scroll state lost: %+v", got.Scroll)
	}
}

func TestHistoryCacheMiss(t *testing.T) {
	c := newHistoryCache(5)
	if _, ok, err := c.get("/nope"); ok || err != nil {
		t.Errorf("miss should be (false, nil), got (%v, %v)", ok, err)
	}
}

func TestHistoryCacheEviction(t *testing.T) {
	c := newHistoryCache(2)
	c.put(entry("/a", "a"))
	c.put(entry("/b", "b"))
	c.put(entry("/c", "c"))

	if _, ok, _ := c.get("/a"); ok {
		t.Error("/a should have been evicted")
	}
	for _, u := range []string{"/b", "/c"} {
		if _, ok, _ := c.get(u); !ok {
			t.Errorf("%s should still be cached", u)
		}
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}

func TestHistoryCacheTouchKeepsRecentlyUsed(t *testing.T) {
	c := newHistoryCache(2)
	c.put(entry("/a", "a"))
	c.put(entry("/b", "b"))
	c.get("/a") // refresh /a so /b is now the oldest
	c.put(entry("/c", "c"))

	if _, ok, _ := c.get("/a"); !ok {
		t.Error("recently used /a should survive")
	}
	if _, ok, _ := c.get("/b"); ok {
		t.Error("/b should have been evicted")
	}
}

func TestHistoryCacheUpdateSameURL(t *testing.T) {
	c := newHistoryCache(2)
	c.put(entry("/a", "v1"))
	c.put(entry("/a", "v2"))

	got, ok, _ := c.get("/a")
	if !ok || got.Content != "v2" {
		t.Errorf("got %+v, want v2", got)
	}
	if c.len() != 1 {
		t.Errorf("len = %d, want 1", c.len())
	}
}

func TestHistoryCacheCorruptEntryBehavesLikeMiss(t *testing.T) {
	c := newHistoryCache(5)
	c.put(entry("/a", "a"))
	c.entries["/a"] = "not-a-snapshot"

	_, ok, err := c.get("/a")
	if ok {
		t.Error("corrupted entry should miss")
	}
	if err == nil {
		t.Error("corruption should be reported")
	}
	if c.len() != 0 {
		t.Error("corrupted entry should be purged")
	}
}
