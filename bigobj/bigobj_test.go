//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package bigobj

import "testing"

func TestAllocFindRoundTrip(t *testing.T) {
	table := NewTable(10)
	d1, err := table.Alloc(1<<20, 0, 100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	d2, err := table.Alloc(4096, 0, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	table.SortByBody()

	if got, ok := table.Find(d1.Body); !ok || got != d1 {
		t.Errorf("Find(d1.Body) = (%v, %v), want (%v, true)", got, ok, d1)
	}
	if got, ok := table.Find(d1.Body.Add(10)); !ok || got != d1 {
		t.Errorf("Find(d1.Body+10) = (%v, %v), want (%v, true)", got, ok, d1)
	}
	if got, ok := table.Find(d2.Body); !ok || got != d2 {
		t.Errorf("Find(d2.Body) = (%v, %v), want (%v, true)", got, ok, d2)
	}
	if _, ok := table.Find(0); ok {
		t.Error("Find(0) should miss")
	}
	table.ReleaseAll()
}

func TestWouldCollide(t *testing.T) {
	table := NewTable(2)
	if table.WouldCollide() {
		t.Fatal("fresh table should not collide")
	}
	table.Alloc(4096, 0, 0)
	table.Alloc(4096, 0, 0)
	if !table.WouldCollide() {
		t.Fatal("table at budget should report collision risk")
	}
	if _, err := table.Alloc(4096, 0, 0); err == nil {
		t.Fatal("Alloc past budget should fail")
	}
	table.ReleaseAll()
}

func TestSweepUnmapsUnmarked(t *testing.T) {
	table := NewTable(10)
	keep, err := table.Alloc(4096, 0, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	drop, err := table.Alloc(4096, 0, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	keep.Mark = true
	drop.Mark = false

	freed, err := table.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if freed != 1 {
		t.Fatalf("Sweep freed %d, want 1", freed)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d survivors, want 1", table.Len())
	}
	table.SortByBody()
	if _, ok := table.Find(keep.Body); !ok {
		t.Error("surviving descriptor should still be findable")
	}
	for _, d := range table.entries {
		if d.Mark {
			t.Error("survivor mark bit should be cleared after Sweep")
		}
	}
	table.ReleaseAll()
}
