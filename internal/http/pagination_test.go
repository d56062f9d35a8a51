package httpserver

import (
	"errors"
	"testing"
)

func TestResolvePage(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		total     int
		wantPage  int
		wantPages int
		wantErr   bool
	}{
		{"default first page", "", 25, 1, 3, false},
		{"explicit page", "2", 25, 2, 3, false},
		{"last keyword", "last", 25, 3, 3, false},
		{"exact multiple", "last", 20, 2, 2, false},
		{"empty list first page", "", 0, 1, 1, false},
		{"empty list page one", "1", 0, 1, 1, false},
		{"empty list last", "last", 0, 1, 1, false},
		{"past the end", "4", 25, 0, 0, true},
		{"empty list page two", "2", 0, 0, 0, true},
		{"zero", "0", 25, 0, 0, true},
		{"negative", "-1", 25, 0, 0, true},
		{"not a number", "abc", 25, 0, 0, true},
		{"float", "1.5", 25, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePage(tt.raw, tt.total, 10)
			if tt.wantErr {
				if !errors.Is(err, errInvalidPage) {
					t.Fatalf("resolvePage(%q, %d) error = %v, want errInvalidPage", tt.raw, tt.total, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePage(%q, %d) unexpected error: %v", tt.raw, tt.total, err)
			}
			if got.Number != tt.wantPage || got.NumPages != tt.wantPages {
				t.Fatalf("resolvePage(%q, %d) = page %d of %d, want %d of %d",
					tt.raw, tt.total, got.Number, got.NumPages, tt.wantPage, tt.wantPages)
			}
		})
	}
}

func TestPageInfoNavigation(t *testing.T) {
	p, err := resolvePage("2", 25, 10)
	if err != nil {
		t.Fatalf("resolvePage: %v", err)
	}
	if p.Offset() != 10 {
		t.Fatalf("Offset = %d, want 10", p.Offset())
	}
	if !p.HasPrevious() || p.Previous() != 1 {
		t.Fatalf("previous page wrong: %+v", p)
	}
	if !p.HasNext() || p.Next() != 3 {
		t.Fatalf("next page wrong: %+v", p)
	}

	last, _ := resolvePage("last", 25, 10)
	if last.HasNext() {
		t.Fatalf("last page should not have a next page")
	}
}

func FuzzResolvePage(f *testing.F) {
	seeds := []struct {
		raw   string
		total int
	}{
		{"", 0},
		{"1", 12},
		{"last", 105},
		{"-3", 7},
		{"99999999999999999999", 5},
	}
	for _, seed := range seeds {
		f.Add(seed.raw, seed.total)
	}

	f.Fuzz(func(t *testing.T, raw string, total int) {
		if total < 0 || total > 1<<30 {
			return
		}
		p, err := resolvePage(raw, total, 10)
		if err != nil {
			return
		}
		if p.Number < 1 || p.Number > p.NumPages {
			t.Fatalf("page %d outside 1..%d", p.Number, p.NumPages)
		}
		if p.Offset() > total && total > 0 {
			t.Fatalf("offset %d beyond total %d", p.Offset(), total)
		}
	})
}
