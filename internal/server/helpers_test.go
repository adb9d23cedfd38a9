package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPathParam_WithSuffix(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/history/pending/snap-42/retry", nil)
	if got := PathParam(r, "/api/history/pending/", "/retry"); got != "snap-42" {
		t.Errorf("PathParam = %q, want %q", got, "snap-42")
	}
}

func TestPathParam_NoSuffix(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/history/pending/snap-42", nil)
	if got := PathParam(r, "/api/history/pending/", ""); got != "snap-42" {
		t.Errorf("PathParam = %q, want %q", got, "snap-42")
	}
}

func TestPathParam_NoSuffix_StopsAtSlash(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/history/pending/snap-42/extra", nil)
	if got := PathParam(r, "/api/history/pending/", ""); got != "snap-42" {
		t.Errorf("PathParam = %q, want %q", got, "snap-42")
	}
}

func TestPathParam_PrefixMismatch(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/other/snap-42", nil)
	if got := PathParam(r, "/api/history/pending/", ""); got != "" {
		t.Errorf("PathParam = %q, want empty on prefix mismatch", got)
	}
}

func TestPathParam_MissingSuffixReturnsRest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/history/pending/snap-42", nil)
	if got := PathParam(r, "/api/history/pending/", "/retry"); got != "snap-42" {
		t.Errorf("PathParam = %q, want %q", got, "snap-42")
	}
}
