package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(t *testing.T, query string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=5&offset=10", 5, 10},
		{"capped at max", "limit=500", MaxLimit, 0},
		{"negative values", "limit=-1&offset=-3", DefaultLimit, 0},
		{"non numeric", "limit=abc&offset=xyz", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromContext(ctxWithQuery(t, tt.query))
			if p.Limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("offset: got %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	if !p.HasNext(25) {
		t.Error("expected more results")
	}
	if p.HasNext(20) {
		t.Error("expected no more results")
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a"}, 30, 10, 0)
	if !r.HasMore {
		t.Error("expected has_more true")
	}
	r = NewResponse([]string{"a"}, 10, 10, 0)
	if r.HasMore {
		t.Error("expected has_more false")
	}
}
