// Package candles converts raw price ticks into gap-free OHLC candlestick
// sequences for charting.
//
// The pipeline is a chain of pure functions: deduplicate and sort the raw
// ticks, bucket them into fixed periods, fill any missing periods with flat
// carry-forward candles, and overlay a live "current" candle from the
// latest average price. Each stage returns freshly constructed values and
// never mutates its input, so repeated calls with identical inputs are
// idempotent.
//
// Prices here are chart-scale decimals, not fixed-point token amounts; the
// on-chain precision rules of internal/vault do not apply to charting.
package candles

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// DedupTicks removes duplicate timestamps (first occurrence wins) and
// returns the remaining ticks sorted ascending by time.
//
// Upstream indexers page their results and overlapping pages can repeat or
// reorder ticks; this stage makes the stream safe to bucket.
func DedupTicks(ticks []model.PriceTick) []model.PriceTick {
	seen := make(map[int64]struct{}, len(ticks))
	out := make([]model.PriceTick, 0, len(ticks))
	for _, tick := range ticks {
		if _, dup := seen[tick.Time]; dup {
			continue
		}
		seen[tick.Time] = struct{}{}
		out = append(out, tick)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// bucketStart returns the bucket key for a timestamp: the start of the
// period containing it.
func bucketStart(ts, periodSeconds int64) int64 {
	return (ts / periodSeconds) * periodSeconds
}

// ToCandles buckets deduplicated, time-ordered ticks into OHLC candles of
// the given period.
//
// Within a bucket the open is the first price entering it, high/low track
// the running extremes and close is the last price seen. A bucket
// transition flushes the finished candle and seeds the next candle's open
// from the previous close, so adjacent candles join without price jumps.
//
// Fewer than two ticks yield no candles: a single observation cannot span a
// bucket transition and aggregating it would only fabricate data.
func ToCandles(ticks []model.PriceTick, periodSeconds int64) []model.Candle {
	if len(ticks) < 2 || periodSeconds <= 0 {
		return nil
	}

	candles := make([]model.Candle, 0, len(ticks))
	prevBucket := bucketStart(ticks[0].Time, periodSeconds)
	price := ticks[0].Price
	open, high, low, cls := price, price, price, price

	for _, tick := range ticks[1:] {
		bucket := bucketStart(tick.Time, periodSeconds)
		if bucket != prevBucket {
			candles = append(candles, model.Candle{Time: prevBucket, Open: open, High: high, Low: low, Close: cls})
			open = cls
			high = cls
			low = cls
		}
		cls = tick.Price
		if tick.Price.GreaterThan(high) {
			high = tick.Price
		}
		if tick.Price.LessThan(low) {
			low = tick.Price
		}
		prevBucket = bucket
	}

	candles = append(candles, model.Candle{Time: prevBucket, Open: open, High: high, Low: low, Close: cls})
	return candles
}

// FillGaps inserts flat candles for every missing period between adjacent
// candles, so chart renderers never see a time gap. Synthesized candles
// carry the previous candle's close as O=H=L=C.
func FillGaps(candles []model.Candle, periodSeconds int64) []model.Candle {
	if len(candles) < 2 || periodSeconds <= 0 {
		return candles
	}

	out := make([]model.Candle, 0, len(candles))
	out = append(out, candles[0])
	for _, candle := range candles[1:] {
		prev := out[len(out)-1]
		for ts := prev.Time + periodSeconds; ts < candle.Time; ts += periodSeconds {
			out = append(out, model.Candle{
				Time:  ts,
				Open:  prev.Close,
				High:  prev.Close,
				Low:   prev.Close,
				Close: prev.Close,
			})
		}
		out = append(out, candle)
	}
	return out
}

// AppendCurrentAverage overlays the live average price onto the candle
// sequence.
//
// If now falls into the last candle's bucket that candle is extended with
// the average as its new close (stretching high/low as needed); otherwise a
// synthetic current candle is appended, opening at the prior close. The
// input slice is not modified.
func AppendCurrentAverage(candles []model.Candle, average decimal.Decimal, periodSeconds, now int64) []model.Candle {
	if len(candles) == 0 || periodSeconds <= 0 {
		return candles
	}

	currentBucket := bucketStart(now, periodSeconds)
	out := make([]model.Candle, len(candles))
	copy(out, candles)

	last := out[len(out)-1]
	if last.Time == currentBucket {
		last.Close = average
		if average.GreaterThan(last.High) {
			last.High = average
		}
		if average.LessThan(last.Low) {
			last.Low = average
		}
		out[len(out)-1] = last
		return out
	}

	open := last.Close
	high := open
	low := open
	if average.GreaterThan(high) {
		high = average
	}
	if average.LessThan(low) {
		low = average
	}
	return append(out, model.Candle{Time: currentBucket, Open: open, High: high, Low: low, Close: average})
}

// BuildChart runs the full pipeline on raw ticks: dedup, bucket, gap fill.
func BuildChart(ticks []model.PriceTick, periodSeconds int64) []model.Candle {
	return FillGaps(ToCandles(DedupTicks(ticks), periodSeconds), periodSeconds)
}
