package hxdrive

import (
	"context"
	"testing"
)

func TestParseSyncSpec(t *testing.T) {
	tests := []struct {
		value string
		want  SyncSpec
	}{
		{"#form", SyncSpec{Selector: "#form", Policy: SyncDrop}},
		{"#form:drop", SyncSpec{Selector: "#form", Policy: SyncDrop}},
		{"#form:abort", SyncSpec{Selector: "#form", Policy: SyncAbort}},
		{"#form:replace", SyncSpec{Selector: "#form", Policy: SyncReplace}},
		{"#form:queue", SyncSpec{Selector: "#form", Policy: SyncQueueLast}},
		{"#form:queue first", SyncSpec{Selector: "#form", Policy: SyncQueueFirst}},
		{"#form:queue last", SyncSpec{Selector: "#form", Policy: SyncQueueLast}},
		{"#form:queue all", SyncSpec{Selector: "#form", Policy: SyncQueueAll}},
		{"this:drop", SyncSpec{Selector: "this", Policy: SyncDrop}},
		{"closest form:abort", SyncSpec{Selector: "closest form", Policy: SyncAbort}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseSyncSpec(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseSyncSpec(%q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseSyncSpecErrors(t *testing.T) {
	for _, v := range []string{"", ":drop", "#form:explode", "#form:queue never"} {
		if _, err := ParseSyncSpec(v); err == nil {
			t.Errorf("ParseSyncSpec(%q) should fail", v)
		}
	}
}

func testRequest() *RequestDescriptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &RequestDescriptor{ID: "r", ctx: ctx, cancel: cancel}
}

func TestSyncGroupDrop(t *testing.T) {
	g := &syncGroup{key: "#f"}
	first, second := testRequest(), testRequest()

	if got := g.admit(first, SyncDrop); got != first {
		t.Fatal("idle group should admit the first request")
	}
	if got := g.admit(second, SyncDrop); got != nil {
		t.Fatal("busy group with drop should reject the newcomer")
	}
	if second.state != reqDropped {
		t.Errorf("second.state = %v, want dropped", second.state)
	}
	if next := g.complete(first); next != nil {
		t.Errorf("nothing should be queued, got %v", next)
	}
}

func TestSyncGroupAbort(t *testing.T) {
	g := &syncGroup{key: "#f"}
	first, second := testRequest(), testRequest()

	g.admit(first, SyncAbort)
	if got := g.admit(second, SyncAbort); got != second {
		t.Fatal("abort should admit the newcomer immediately")
	}
	if !first.aborted() {
		t.Error("first request should be aborted")
	}
	select {
	case <-first.ctx.Done():
	default:
		t.Error("first request context should be cancelled")
	}
}

func TestSyncGroupQueueLast(t *testing.T) {
	g := &syncGroup{key: "#f"}
	first, second, third := testRequest(), testRequest(), testRequest()

	g.admit(first, SyncQueueLast)
	g.admit(second, SyncQueueLast)
	g.admit(third, SyncQueueLast)

	if second.state != reqDropped {
		t.Error("queue last should drop the superseded submission")
	}
	next := g.complete(first)
	if next != third {
		t.Fatalf("complete should hand back the latest submission, got %v", next)
	}
	if g.complete(third) != nil {
		t.Error("queue should now be empty")
	}
}

func TestSyncGroupQueueFirst(t *testing.T) {
	g := &syncGroup{key: "#f"}
	first, second, third := testRequest(), testRequest(), testRequest()

	g.admit(first, SyncQueueFirst)
	g.admit(second, SyncQueueFirst)
	g.admit(third, SyncQueueFirst)

	if third.state != reqDropped {
		t.Error("queue first keeps only the earliest buffered submission")
	}
	if next := g.complete(first); next != second {
		t.Fatalf("complete should hand back the earliest submission, got %v", next)
	}
}

func TestSyncGroupQueueAll(t *testing.T) {
	g := &syncGroup{key: "#f"}
	first, second, third := testRequest(), testRequest(), testRequest()

	g.admit(first, SyncQueueAll)
	g.admit(second, SyncQueueAll)
	g.admit(third, SyncQueueAll)

	if next := g.complete(first); next != second {
		t.Fatalf("want second, got %v", next)
	}
	if next := g.complete(second); next != third {
		t.Fatalf("want third, got %v", next)
	}
	if g.complete(third) != nil {
		t.Error("queue should be drained")
	}
}
