package telemetry

import (
	"io"
	"log/slog"
	"testing"
)

func newTestDetector() *BookmarkDetector {
	return NewBookmarkDetector(10, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Outbreak(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 5; i++ {
		bd.Check(GenerationRecord{Gen: i, PopSize: 100, NewInfections: 2, Infected: 6})
	}

	bookmarks := bd.Check(GenerationRecord{Gen: 5, PopSize: 100, NewInfections: 30, Infected: 34})
	if !hasBookmark(bookmarks, BookmarkOutbreak) {
		t.Error("expected outbreak bookmark")
	}
}

func TestBookmarkDetector_OutbreakNeedsPrevalence(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 5; i++ {
		bd.Check(GenerationRecord{Gen: i, PopSize: 100, NewInfections: 1, Infected: 2})
	}

	// Large jump relative to the average but only 9% infected.
	bookmarks := bd.Check(GenerationRecord{Gen: 5, PopSize: 100, NewInfections: 5, Infected: 9})
	if hasBookmark(bookmarks, BookmarkOutbreak) {
		t.Error("unexpected outbreak bookmark")
	}
}

func TestBookmarkDetector_ForageBreakthrough(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 4; i++ {
		bd.Check(GenerationRecord{Gen: i, FoodEaten: 100})
	}
	if !hasBookmark(bd.Check(GenerationRecord{Gen: 4, FoodEaten: 250}), BookmarkForageBreakthrough) {
		t.Error("expected forage_breakthrough bookmark")
	}
}

func TestBookmarkDetector_SpreadCollapse(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 3; i++ {
		bd.Check(GenerationRecord{Gen: i, PathogenIntroduced: true, PropHorizontal: 0.8})
	}

	bookmarks := bd.Check(GenerationRecord{Gen: 3, PathogenIntroduced: true, PropHorizontal: 0.2})
	if !hasBookmark(bookmarks, BookmarkSpreadCollapse) {
		t.Fatal("expected spread_collapse bookmark")
	}

	// The peak resets, so the same level does not fire again.
	if hasBookmark(bd.Check(GenerationRecord{Gen: 4, PathogenIntroduced: true, PropHorizontal: 0.2}), BookmarkSpreadCollapse) {
		t.Error("spread_collapse fired twice")
	}
}

func TestBookmarkDetector_StrategyShift(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 4; i++ {
		bd.Check(GenerationRecord{Gen: i, CoefNbrsMean: 0.3})
	}
	bookmarks := bd.Check(GenerationRecord{Gen: 4, CoefNbrsMean: -0.2})
	if !hasBookmark(bookmarks, BookmarkStrategyShift) {
		t.Error("expected strategy_shift bookmark")
	}
}

func TestBookmarkDetector_StableStrategyOnce(t *testing.T) {
	bd := newTestDetector()
	var count int
	for i := 0; i < 20; i++ {
		for _, bm := range bd.Check(GenerationRecord{Gen: i, CoefNbrsMean: -0.5, CoefFoodMean: 0.4}) {
			if bm.Type == BookmarkStableStrategy {
				count++
			}
		}
	}
	if count != 1 {
		t.Errorf("stable_strategy fired %d times, want 1", count)
	}
}

func TestBookmarkDetector_Sink(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 4; i++ {
		if err := bd.WriteGeneration(GenerationRecord{Gen: i, FoodEaten: 10}); err != nil {
			t.Fatalf("WriteGeneration: %v", err)
		}
	}
	_ = bd.WriteGeneration(GenerationRecord{Gen: 4, FoodEaten: 100})
	if err := bd.WriteNetwork(NetworkRecord{}); err != nil {
		t.Errorf("WriteNetwork: %v", err)
	}
	if len(bd.Bookmarks()) != 1 || bd.Bookmarks()[0].Gen != 4 {
		t.Errorf("Bookmarks = %+v, want one at gen 4", bd.Bookmarks())
	}
}

func TestBookmarkDetector_HistoryOrder(t *testing.T) {
	bd := NewBookmarkDetector(5, nil)
	for i := 0; i < 7; i++ {
		bd.addToHistory(GenerationRecord{Gen: i})
	}
	history := bd.getHistory()
	for i, h := range history {
		if h.Gen != i+2 {
			t.Errorf("history[%d].Gen = %d, want %d", i, h.Gen, i+2)
		}
	}
}
