package restclient

import (
	"net/url"
	"testing"
)

func TestParamsEncode(t *testing.T) {
	params := NewParams().Set("a", "x y").Set("b", 2)
	if got := params.Encode(); got != "?a=x%20y&b=2" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestParamsEncodeEscapesReservedCharacters(t *testing.T) {
	params := NewParams().Set("q", "a&b=c/d?e#f")
	if got := params.Encode(); got != "?q=a%26b%3Dc%2Fd%3Fe%23f" {
		t.Fatalf("unexpected encoding %q", got)
	}

	params = NewParams().Set("q", "it's (fine)*!~")
	if got := params.Encode(); got != "?q=it's%20(fine)*!~" {
		t.Fatalf("unexpected component encoding %q", got)
	}
}

func TestParamsKeepInsertionOrder(t *testing.T) {
	params := NewParams().Set("z", 1).Set("a", 2).Set("z", 3)
	if got := params.Encode(); got != "?z=3&a=2" {
		t.Fatalf("expected insertion order to be kept, got %q", got)
	}

	params.Del("z")
	if got := params.Encode(); got != "?a=2" {
		t.Fatalf("unexpected encoding after delete %q", got)
	}
}

func TestParamsEmptyAndNil(t *testing.T) {
	var nilParams *Params
	if nilParams.Encode() != "" || nilParams.Len() != 0 || nilParams.Get("x") != "" {
		t.Fatalf("nil params must behave as empty")
	}
	if NewParams().Encode() != "" {
		t.Fatalf("expected empty params to encode to empty string")
	}
	if clone := nilParams.Clone(); clone == nil || clone.Len() != 0 {
		t.Fatalf("expected empty clone")
	}
	nilParams.Del("x")
	if nilParams.Has("x") || nilParams.String() != "" {
		t.Fatalf("nil params must stay empty")
	}

	var zero Params
	zero.Set("page", 2).PerPage(5)
	if got := zero.Encode(); got != "?page=2&perPage=5" {
		t.Fatalf("expected zero value to accept writes, got %q", got)
	}
}

func TestParamsHelpers(t *testing.T) {
	params := NewParams().Expand("image", "teaser").Page(2).PerPage(25).Lang("en", "de").MaxDepth(3).IncludeAll(true)
	want := "?expand=image%2Cteaser&page=2&perPage=25&lang=en%2Cde&maxDepth=3&includeAll=true"
	if got := params.Encode(); got != want {
		t.Fatalf("unexpected encoding\n got: %s\nwant: %s", got, want)
	}
}

func TestFromQuery(t *testing.T) {
	params := FromQuery(url.Values{"page": {"2", "3"}, "expand": {"image"}})
	if got := params.Encode(); got != "?expand=image&page=2" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestParamsCloneIsIndependent(t *testing.T) {
	original := NewParams().Set("a", 1)
	clone := original.Clone()
	clone.Set("b", 2)
	if original.Has("b") {
		t.Fatalf("expected clone mutation not to leak")
	}
}
