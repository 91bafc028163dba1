package cmd

import (
	"testing"
	"time"

	"github.com/fugjoo/pigeon-scanner/internal/database"
)

func TestFindDuplicates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pigeons := []database.StoredPigeon{
		{ID: "a", Name: "Grübchen", CreatedAt: base},
		{ID: "b", Name: "grubchen", CreatedAt: base.Add(time.Hour)}, // duplicate, newer
		{ID: "c", Name: "Bert", CreatedAt: base},
		{ID: "d", Name: "GRUBCHEN", CreatedAt: base.Add(2 * time.Hour)}, // duplicate, newest
	}

	doomed := findDuplicates(pigeons)

	if len(doomed) != 2 {
		t.Fatalf("expected 2 duplicates, got %d: %v", len(doomed), doomed)
	}
	// The oldest entry of the group (a) survives.
	for _, id := range doomed {
		if id == "a" || id == "c" {
			t.Errorf("entry %s should not be deleted", id)
		}
	}
}

func TestFindDuplicates_NoDuplicates(t *testing.T) {
	pigeons := []database.StoredPigeon{
		{ID: "a", Name: "Grubchen"},
		{ID: "b", Name: "Bert"},
	}
	if doomed := findDuplicates(pigeons); len(doomed) != 0 {
		t.Errorf("expected no duplicates, got %v", doomed)
	}
}

func TestFindDuplicates_TieBreakByID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pigeons := []database.StoredPigeon{
		{ID: "zzz", Name: "Coco", CreatedAt: ts},
		{ID: "aaa", Name: "Coco", CreatedAt: ts},
	}

	doomed := findDuplicates(pigeons)
	if len(doomed) != 1 || doomed[0] != "zzz" {
		t.Errorf("expected zzz to be deleted on equal timestamps, got %v", doomed)
	}
}
