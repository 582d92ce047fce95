package candles

import (
	"github.com/shopspring/decimal"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// ChartBuilder maintains a bounded window of deduplicated ticks for one
// symbol and rebuilds candle sequences from it on demand.
//
// The builder is not safe for concurrent use; the chart service serializes
// access through its single processing goroutine, the same ownership model
// the dispatcher uses for its subscriber map.
type ChartBuilder struct {
	maxTicks int
	ticks    []model.PriceTick // deduplicated, ascending by time
}

// defaultMaxTicks bounds the in-memory tick window per symbol. At one tick
// per second this covers more than a full day of 5m candles.
const defaultMaxTicks = 100_000

// NewChartBuilder creates a builder with the given tick window size;
// non-positive sizes fall back to the default.
func NewChartBuilder(maxTicks int) *ChartBuilder {
	if maxTicks <= 0 {
		maxTicks = defaultMaxTicks
	}
	return &ChartBuilder{maxTicks: maxTicks}
}

// Seed replaces the tick window with a backfill batch. The batch may be
// unordered and contain duplicates; it is normalized before storage.
func (b *ChartBuilder) Seed(ticks []model.PriceTick) {
	deduped := DedupTicks(ticks)
	if len(deduped) > b.maxTicks {
		deduped = deduped[len(deduped)-b.maxTicks:]
	}
	b.ticks = deduped
}

// Append adds a live tick to the window. Ticks at an already-seen timestamp
// are dropped (first occurrence wins, matching DedupTicks), out-of-order
// ticks are inserted in place, and the window is trimmed from the front
// when it exceeds its bound.
func (b *ChartBuilder) Append(tick model.PriceTick) {
	n := len(b.ticks)
	if n == 0 || tick.Time > b.ticks[n-1].Time {
		b.ticks = append(b.ticks, tick)
	} else {
		// Find the insertion point; drop exact-timestamp duplicates.
		lo, hi := 0, n
		for lo < hi {
			mid := (lo + hi) / 2
			if b.ticks[mid].Time < tick.Time {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo < n && b.ticks[lo].Time == tick.Time {
			return
		}
		b.ticks = append(b.ticks, model.PriceTick{})
		copy(b.ticks[lo+1:], b.ticks[lo:])
		b.ticks[lo] = tick
	}

	if len(b.ticks) > b.maxTicks {
		b.ticks = b.ticks[len(b.ticks)-b.maxTicks:]
	}
}

// TickCount returns the number of ticks currently held.
func (b *ChartBuilder) TickCount() int {
	return len(b.ticks)
}

// Candles rebuilds the candle sequence at the given period and overlays the
// live average price when it is positive.
func (b *ChartBuilder) Candles(periodSeconds int64, average decimal.Decimal, now int64) []model.Candle {
	chart := FillGaps(ToCandles(b.ticks, periodSeconds), periodSeconds)
	if average.IsPositive() {
		chart = AppendCurrentAverage(chart, average, periodSeconds, now)
	}
	return chart
}
