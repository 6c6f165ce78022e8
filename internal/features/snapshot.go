package features

import (
	"sort"
	"strings"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// GroupSeries splits daily entries into per-product, date-sorted series.
// Entries sharing a (date, product) are merged: quantities summed, prices averaged.
func GroupSeries(daily []domain.DailyEntry) map[string][]domain.DailyEntry {
	sorted := make([]domain.DailyEntry, 0, len(daily))
	for _, e := range daily {
		e.ProductKey = strings.TrimSpace(e.ProductKey)
		if e.ProductKey == "" || e.Date.IsZero() {
			continue
		}
		e.Date = domain.Day(e.Date)
		sorted = append(sorted, e)
	}
	sortDaily(sorted)

	groups := make(map[string][]domain.DailyEntry)
	merged := 1
	for _, e := range sorted {
		series := groups[e.ProductKey]
		if n := len(series); n > 0 && series[n-1].Date.Equal(e.Date) {
			last := &series[n-1]
			last.UnitPrice = (last.UnitPrice*float64(merged) + e.UnitPrice) / float64(merged+1)
			last.Quantity += e.Quantity
			merged++
			continue
		}
		merged = 1
		groups[e.ProductKey] = append(series, e)
	}
	return groups
}

// Series returns one product's date-sorted daily series.
func Series(daily []domain.DailyEntry, productKey string) []domain.DailyEntry {
	productKey = strings.TrimSpace(productKey)
	var subset []domain.DailyEntry
	for _, e := range daily {
		if strings.TrimSpace(e.ProductKey) == productKey {
			subset = append(subset, e)
		}
	}
	return GroupSeries(subset)[productKey]
}

// LatestSnapshot returns, per product, the row with the most recent date,
// ordered by product key.
func LatestSnapshot(rows []domain.FeatureRow) []domain.FeatureRow {
	latest := make(map[string]domain.FeatureRow)
	for _, r := range rows {
		cur, ok := latest[r.ProductKey]
		if !ok || r.Date.After(cur.Date) {
			latest[r.ProductKey] = r
		}
	}
	out := make([]domain.FeatureRow, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductKey < out[j].ProductKey })
	return out
}

// Summaries lists every product in daily with its series span and whether the
// table has at least one feature row for it. A nil table falls back to series length.
func Summaries(daily []domain.DailyEntry, t *Table) []domain.Product {
	uncovered := make(map[string]struct{})
	if t != nil {
		for _, k := range t.Uncovered {
			uncovered[k] = struct{}{}
		}
	}
	groups := GroupSeries(daily)
	out := make([]domain.Product, 0, len(groups))
	for key, series := range groups {
		covered := len(series) > Window
		if t != nil {
			_, missing := uncovered[key]
			covered = !missing
		}
		out = append(out, domain.Product{
			ProductKey:   key,
			SeriesLength: len(series),
			FirstDate:    series[0].Date,
			LastDate:     series[len(series)-1].Date,
			Covered:      covered,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductKey < out[j].ProductKey })
	return out
}
