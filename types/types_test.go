package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestHarvestOutcome_Validate(t *testing.T) {
	tests := []struct {
		name    string
		outcome HarvestOutcome
		wantErr bool
	}{
		{
			name:    "empty command",
			outcome: HarvestOutcome{Command: "", Session: "sess-1"},
			wantErr: true,
		},
		{
			name:    "empty session",
			outcome: HarvestOutcome{Command: "crawl-1", Session: ""},
			wantErr: true,
		},
		{
			name: "overlapping kept and failed",
			outcome: HarvestOutcome{
				Command: "crawl-1",
				Session: "sess-1",
				Kept:    []string{"u1", "u2"},
				Failed:  []string{"u2"},
			},
			wantErr: true,
		},
		{
			name: "valid disjoint outcome",
			outcome: HarvestOutcome{
				Command: "crawl-1",
				Session: "sess-1",
				Kept:    []string{"u1"},
				Failed:  []string{"u2"},
			},
			wantErr: false,
		},
		{
			name:    "valid empty sets",
			outcome: HarvestOutcome{Command: "crawl-1", Session: "sess-1"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.outcome.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemSet_OrderPreserved(t *testing.T) {
	s := NewItemSet("u3", "u1", "u2", "u1")

	if got := s.Len(); got != 3 {
		t.Fatalf("expected 3 members, got %d", got)
	}

	want := []string{"u3", "u1", "u2"}
	got := s.Items()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestItemSet_RemoveKeepsOrder(t *testing.T) {
	s := NewItemSet("u1", "u2", "u3")
	s.Remove("u2")
	s.Remove("missing")

	if s.Contains("u2") {
		t.Error("u2 should have been removed")
	}

	want := []string{"u1", "u3"}
	got := s.Items()
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestItemSet_ItemsIsCopy(t *testing.T) {
	s := NewItemSet("u1", "u2")
	items := s.Items()
	items[0] = "mutated"

	if got := s.Items()[0]; got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
}
