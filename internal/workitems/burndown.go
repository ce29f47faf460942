package workitems

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// Category labels a subset of bugs selected by tag for separate burndown
// series.
type Category struct {
	Name string
	Tag  string
}

// SeriesPoint is one day of a burndown series.
type SeriesPoint struct {
	Date time.Time
	Open int
}

// Burndown holds daily open-bug counts over a date window, total plus one
// series per category.
type Burndown struct {
	Total      []SeriesPoint
	Categories map[string][]SeriesPoint
}

// Compute builds the burndown between from and to (inclusive, daily step).
// A bug counts as open at a day boundary iff it was created on or before the
// boundary and not yet closed at it. The rule is deterministic so reruns
// over the same snapshot always produce the same series.
func Compute(bugs []azdo.WorkItem, from, to time.Time, categories []Category) *Burndown {
	b := &Burndown{Categories: map[string][]SeriesPoint{}}
	if to.Before(from) {
		return b
	}

	from = from.Truncate(24 * time.Hour)
	to = to.Truncate(24 * time.Hour)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		total := 0
		perCat := make([]int, len(categories))
		for i := range bugs {
			if !openAt(&bugs[i], day) {
				continue
			}
			total++
			for c := range categories {
				if HasTag(&bugs[i], categories[c].Tag) {
					perCat[c]++
				}
			}
		}
		b.Total = append(b.Total, SeriesPoint{Date: day, Open: total})
		for c := range categories {
			b.Categories[categories[c].Name] = append(b.Categories[categories[c].Name], SeriesPoint{Date: day, Open: perCat[c]})
		}
	}
	return b
}

// openAt applies the boundary rule: created on or before the boundary and
// either never closed or closed strictly after it.
func openAt(wi *azdo.WorkItem, boundary time.Time) bool {
	if wi.CreatedDate.IsZero() || wi.CreatedDate.After(boundary) {
		return false
	}
	return !wi.Closed() || wi.ClosedDate.After(boundary)
}

// Delta returns the final open count and its change against the previous
// day.
func (b *Burndown) Delta() (open, delta int) {
	n := len(b.Total)
	if n == 0 {
		return 0, 0
	}
	open = b.Total[n-1].Open
	if n > 1 {
		delta = open - b.Total[n-2].Open
	}
	return open, delta
}

// WriteCSV persists the series, one row per day with the total and every
// category column.
func (b *Burndown) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", path)
	}
	defer f.Close()

	names := make([]string, 0, len(b.Categories))
	for name := range b.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	w := csv.NewWriter(f)
	header := append([]string{"Date", "OpenBugs"}, names...)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "couldn't write header to %s", path)
	}
	for i := range b.Total {
		row := []string{
			b.Total[i].Date.Format("2006-01-02"),
			strconv.Itoa(b.Total[i].Open),
		}
		for _, name := range names {
			row = append(row, strconv.Itoa(b.Categories[name][i].Open))
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "couldn't write row to %s", path)
		}
	}
	w.Flush()
	return w.Error()
}
