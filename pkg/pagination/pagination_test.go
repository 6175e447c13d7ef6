package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("negative limit should fall back to default, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected cap at %d, got %d", MaxLimit, got)
	}
	if got := NormalizeLimit(25); got != 25 {
		t.Fatalf("in-range limit should pass through, got %d", got)
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, Limit: 10}
	if got := p.Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	p = Params{}
	if got := p.Offset(); got != 0 {
		t.Fatalf("expected zero offset for defaults, got %d", got)
	}
}

func TestDescribe(t *testing.T) {
	res := Describe(Params{Page: 2, Limit: 10}, 35)
	if res.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", res.TotalPages)
	}
	if !res.HasNext || !res.HasPrev {
		t.Fatalf("expected middle page to have both neighbors: %+v", res)
	}

	res = Describe(Params{Page: 1, Limit: 10}, 5)
	if res.HasNext || res.HasPrev {
		t.Fatalf("single page should have no neighbors: %+v", res)
	}
}
