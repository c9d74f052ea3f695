package core

import (
	"fmt"
	"math"
	"time"
)

// Percentage conventions shared by every dashboard change metric:
// (current − previous) / previous × 100, +100 when previous is zero and
// current is not, 0 when both are zero. Flow changes clamp to [−99, 999];
// the stock-level change uses the tighter [−99, 99].

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// PercentChange is the period-over-period change for flow metrics.
func PercentChange(current, previous float64) float64 {
	switch {
	case previous > 0:
		return clamp(round1((current-previous)/previous*100), -99, 999)
	case current > 0:
		return 100
	default:
		return 0
	}
}

// StockLevelChange expresses the month's net flow as a share of total stock.
func StockLevelChange(monthIn, monthOut, totalStock int) float64 {
	if totalStock <= 0 {
		return 0
	}
	net := float64(monthIn - monthOut)
	return clamp(round1(net/float64(totalStock)*100), -99, 99)
}

// TurnoverRate is the month's outbound volume as a share of total stock,
// capped at 100.
func TurnoverRate(monthOut, totalStock int) float64 {
	avg := totalStock
	if avg < 1 {
		avg = 1
	}
	return math.Min(round1(float64(monthOut)/float64(avg)*100), 100)
}

// TrendBucket is one calendar-aligned reporting bucket. Key matches the
// grouping key produced by the trend SQL for the same period granularity.
type TrendBucket struct {
	Label string
	Key   string
	Start time.Time
}

// MonthBuckets returns the last n calendar months ending with the current
// one, oldest first. Keys are "2006-01".
func MonthBuckets(now time.Time, n int) []TrendBucket {
	buckets := make([]TrendBucket, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := n - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		buckets = append(buckets, TrendBucket{
			Label: m.Format("Jan"),
			Key:   m.Format("2006-01"),
			Start: m,
		})
	}
	return buckets
}

// QuarterBuckets returns the last n calendar quarters ending with the current
// one, oldest first. Keys are "2006-Q1".
func QuarterBuckets(now time.Time, n int) []TrendBucket {
	buckets := make([]TrendBucket, 0, n)
	qMonth := time.Month((int(now.Month())-1)/3*3 + 1)
	first := time.Date(now.Year(), qMonth, 1, 0, 0, 0, 0, now.Location())
	for i := n - 1; i >= 0; i-- {
		q := first.AddDate(0, -3*i, 0)
		num := (int(q.Month())-1)/3 + 1
		buckets = append(buckets, TrendBucket{
			Label: fmt.Sprintf("Q%d", num),
			Key:   fmt.Sprintf("%d-Q%d", q.Year(), num),
			Start: q,
		})
	}
	return buckets
}

// YearBuckets returns the last n calendar years ending with the current one,
// oldest first. Keys are "2006".
func YearBuckets(now time.Time, n int) []TrendBucket {
	buckets := make([]TrendBucket, 0, n)
	first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	for i := n - 1; i >= 0; i-- {
		y := first.AddDate(-i, 0, 0)
		buckets = append(buckets, TrendBucket{
			Label: y.Format("2006"),
			Key:   y.Format("2006"),
			Start: y,
		})
	}
	return buckets
}

// DayBuckets returns the last n days ending today, oldest first. Keys are
// "2006-01-02".
func DayBuckets(now time.Time, n int) []TrendBucket {
	buckets := make([]TrendBucket, 0, n)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := n - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		buckets = append(buckets, TrendBucket{
			Label: d.Format("2006-01-02"),
			Key:   d.Format("2006-01-02"),
			Start: d,
		})
	}
	return buckets
}

// monthStart returns midnight on the first of now's month.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// prevMonthBounds returns [start, end) of the calendar month before now's.
func prevMonthBounds(now time.Time) (time.Time, time.Time) {
	end := monthStart(now)
	return end.AddDate(0, -1, 0), end
}

// dayStart returns midnight today.
func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
