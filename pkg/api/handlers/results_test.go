package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"defaults", "", DefaultResultsLimit, 0, false},
		{"explicit", "?limit=5&offset=10", 5, 10, false},
		{"limit capped", "?limit=5000", MaxResultsLimit, 0, false},
		{"limit at cap", "?limit=1000", 1000, 0, false},
		{"offset only", "?offset=42", DefaultResultsLimit, 42, false},
		{"zero limit", "?limit=0", 0, 0, true},
		{"negative limit", "?limit=-1", 0, 0, true},
		{"non-numeric limit", "?limit=ten", 0, 0, true},
		{"negative offset", "?offset=-2", 0, 0, true},
		{"non-numeric offset", "?offset=start", 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/results/some-file"+tc.query, nil)

			limit, offset, err := parsePagination(req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got limit=%d offset=%d", limit, offset)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tc.wantLimit {
				t.Errorf("expected limit %d, got %d", tc.wantLimit, limit)
			}
			if offset != tc.wantOffset {
				t.Errorf("expected offset %d, got %d", tc.wantOffset, offset)
			}
		})
	}
}
