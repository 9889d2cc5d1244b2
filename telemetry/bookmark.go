package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkOutbreak           BookmarkType = "outbreak"
	BookmarkForageBreakthrough BookmarkType = "forage_breakthrough"
	BookmarkSpreadCollapse     BookmarkType = "spread_collapse"
	BookmarkStrategyShift      BookmarkType = "strategy_shift"
	BookmarkStableStrategy     BookmarkType = "stable_strategy"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Gen         int
	Description string
}

// LogValue implements slog.LogValuer for structured logging.
func (b Bookmark) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(b.Type)),
		slog.Int("gen", b.Gen),
		slog.String("description", b.Description),
	)
}

// BookmarkDetector flags notable generations: outbreaks, foraging jumps,
// collapses in horizontal spread and shifts in movement strategy.
// It accepts records as a sink and logs each bookmark it raises.
type BookmarkDetector struct {
	logger *slog.Logger

	// Rolling history (circular buffer)
	history     []GenerationRecord
	historySize int
	historyIdx  int
	historyFull bool

	recentSpreadPeak float64 // peak horizontal share since the last collapse
	stableCount      int     // consecutive generations with stable strategy

	found []Bookmark
}

// NewBookmarkDetector creates a detector with the given history size.
// A nil logger uses slog.Default().
func NewBookmarkDetector(historySize int, logger *slog.Logger) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable strategy detection
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookmarkDetector{
		logger:      logger,
		history:     make([]GenerationRecord, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest record and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(rec GenerationRecord) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		for _, check := range []func(GenerationRecord) *Bookmark{
			bd.checkOutbreak,
			bd.checkForageBreakthrough,
			bd.checkSpreadCollapse,
			bd.checkStrategyShift,
			bd.checkStableStrategy,
		} {
			if b := check(rec); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	bd.addToHistory(rec)

	if rec.PropHorizontal > bd.recentSpreadPeak {
		bd.recentSpreadPeak = rec.PropHorizontal
	}

	bd.found = append(bd.found, bookmarks...)
	return bookmarks
}

// Bookmarks returns every bookmark raised so far.
func (bd *BookmarkDetector) Bookmarks() []Bookmark {
	return bd.found
}

// WriteGeneration checks rec and logs any bookmarks.
func (bd *BookmarkDetector) WriteGeneration(rec GenerationRecord) error {
	for _, b := range bd.Check(rec) {
		bd.logger.Info("bookmark", "bookmark", b)
	}
	return nil
}

// WriteNetwork ignores network records.
func (bd *BookmarkDetector) WriteNetwork(NetworkRecord) error {
	return nil
}

func (bd *BookmarkDetector) addToHistory(rec GenerationRecord) {
	bd.history[bd.historyIdx] = rec
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the stored records, oldest first.
func (bd *BookmarkDetector) getHistory() []GenerationRecord {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]GenerationRecord, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

// checkOutbreak fires when new infections exceed twice the rolling average
// and reach a quarter of the population.
func (bd *BookmarkDetector) checkOutbreak(rec GenerationRecord) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || rec.PopSize == 0 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.NewInfections
	}
	avg := float64(total) / float64(len(history))

	frac := float64(rec.Infected) / float64(rec.PopSize)
	if float64(rec.NewInfections) > avg*2.0 && rec.NewInfections >= 3 && frac >= 0.25 {
		return &Bookmark{
			Type:        BookmarkOutbreak,
			Gen:         rec.Gen,
			Description: fmt.Sprintf("%d new infections vs average %.1f, %.0f%% infected", rec.NewInfections, avg, frac*100),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkForageBreakthrough(rec GenerationRecord) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.FoodEaten
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(rec.FoodEaten) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkForageBreakthrough,
			Gen:         rec.Gen,
			Description: fmt.Sprintf("Food eaten %d is %.1fx average (%.1f)", rec.FoodEaten, float64(rec.FoodEaten)/avg, avg),
		}
	}
	return nil
}

// checkSpreadCollapse fires when the horizontal share of infections falls
// by more than half from its recent peak.
func (bd *BookmarkDetector) checkSpreadCollapse(rec GenerationRecord) *Bookmark {
	if bd.recentSpreadPeak < 0.2 || !rec.PathogenIntroduced {
		return nil
	}

	drop := 1.0 - rec.PropHorizontal/bd.recentSpreadPeak
	if drop > 0.5 {
		oldPeak := bd.recentSpreadPeak
		bd.recentSpreadPeak = rec.PropHorizontal

		return &Bookmark{
			Type:        BookmarkSpreadCollapse,
			Gen:         rec.Gen,
			Description: fmt.Sprintf("Horizontal share fell %.0f%% from %.2f to %.2f", drop*100, oldPeak, rec.PropHorizontal),
		}
	}
	return nil
}

// checkStrategyShift fires when the mean neighbour preference changes sign
// against its rolling average.
func (bd *BookmarkDetector) checkStrategyShift(rec GenerationRecord) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.CoefNbrsMean
	}
	avg := sum / float64(len(history))

	if math.Abs(avg) < 0.01 || math.Abs(rec.CoefNbrsMean) < 0.01 {
		return nil
	}
	if math.Signbit(avg) != math.Signbit(rec.CoefNbrsMean) {
		from, to := "avoiding", "seeking"
		if rec.CoefNbrsMean < 0 {
			from, to = to, from
		}
		return &Bookmark{
			Type:        BookmarkStrategyShift,
			Gen:         rec.Gen,
			Description: fmt.Sprintf("Neighbour preference flipped from %s (%.3f) to %s (%.3f)", from, avg, to, rec.CoefNbrsMean),
		}
	}
	return nil
}

// checkStableStrategy fires once when the movement coefficients have varied
// little over the last four generations for five generations running.
func (bd *BookmarkDetector) checkStableStrategy(rec GenerationRecord) *Bookmark {
	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}
	recent := history[len(history)-4:]

	var nbrsSum, foodSum float64
	for _, h := range recent {
		nbrsSum += h.CoefNbrsMean
		foodSum += h.CoefFoodMean
	}
	nbrsMean := nbrsSum / 4
	foodMean := foodSum / 4

	var spread float64
	for _, h := range recent {
		spread = math.Max(spread, math.Abs(h.CoefNbrsMean-nbrsMean))
		spread = math.Max(spread, math.Abs(h.CoefFoodMean-foodMean))
	}

	if spread < 0.01 {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}

	if bd.stableCount == 5 { // trigger exactly once per stable stretch
		return &Bookmark{
			Type:        BookmarkStableStrategy,
			Gen:         rec.Gen,
			Description: fmt.Sprintf("Strategy stable at nbrs %.3f, food %.3f", rec.CoefNbrsMean, rec.CoefFoodMean),
		}
	}
	return nil
}
