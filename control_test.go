package hxdrive

import (
	"net/http"
	"testing"
)

func TestParseControlHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRedirect, "/elsewhere")
	h.Set(HeaderRefresh, "true")
	h.Set(HeaderPushURL, "/pretty")
	h.Set(HeaderRetarget, "#other")
	h.Set(HeaderReswap, "outerHTML")
	h.Set(HeaderTriggerEvent, "saved")

	cd := parseControlHeaders(h)
	if cd.Redirect != "/elsewhere" || !cd.Refresh || cd.PushURL != "/pretty" ||
		cd.Retarget != "#other" || cd.Reswap != "outerHTML" {
		t.Errorf("parsed = %+v", cd)
	}
	if len(cd.Triggers) != 1 || cd.Triggers[0].Name != "saved" {
		t.Errorf("triggers = %+v", cd.Triggers)
	}
}

func TestParseTriggerHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []NamedTrigger
	}{
		{"empty", "", nil},
		{"bare name", "item-updated", []NamedTrigger{{Name: "item-updated"}}},
		{"comma list", "a, b, c", []NamedTrigger{{Name: "a"}, {Name: "b"}, {Name: "c"}}},
		{
			"json detail",
			`{"cart-changed": {"count": 3}}`,
			[]NamedTrigger{{Name: "cart-changed", Detail: map[string]any{"count": float64(3)}}},
		},
		{
			"json no detail",
			`{"ping": true}`,
			[]NamedTrigger{{Name: "ping"}},
		},
		{
			"malformed json degrades to opaque name",
			`{"broken":`,
			[]NamedTrigger{{Name: `{"broken":`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTriggerHeader(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d triggers %v, want %d", len(got), got, len(tt.want))
			}
			for i, w := range tt.want {
				if got[i].Name != w.Name {
					t.Errorf("trigger %d name = %q, want %q", i, got[i].Name, w.Name)
				}
				for k, v := range w.Detail {
					if got[i].Detail[k] != v {
						t.Errorf("trigger %d detail[%s] = %v, want %v", i, k, got[i].Detail[k], v)
					}
				}
			}
		})
	}
}

func TestBuildTriggerHeaderRoundTrip(t *testing.T) {
	t.Run("names only", func(t *testing.T) {
		in := []NamedTrigger{{Name: "a"}, {Name: "b"}}
		out := parseTriggerHeader(BuildTriggerHeader(in))
		if len(out) != 2 || out[0].Name != "a" || out[1].Name != "b" {
			t.Errorf("round trip = %+v", out)
		}
	})

	t.Run("with detail", func(t *testing.T) {
		in := []NamedTrigger{{Name: "cart", Detail: map[string]any{"count": float64(2)}}}
		out := parseTriggerHeader(BuildTriggerHeader(in))
		if len(out) != 1 || out[0].Name != "cart" {
			t.Fatalf("round trip = %+v", out)
		}
		if out[0].Detail["count"] != float64(2) {
			t.Errorf("detail = %v", out[0].Detail)
		}
	})
}
