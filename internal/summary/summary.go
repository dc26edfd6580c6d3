// Package summary reports what a match corpus contains.
package summary

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JakeFAU/kraken/internal/extract"
	"github.com/JakeFAU/kraken/internal/riot"
)

// SoloQueueID is ranked solo/duo.
const SoloQueueID = 420

// ChampionCount is how often a champion was picked.
type ChampionCount struct {
	Name  string
	Games int
}

// Report describes a corpus.
type Report struct {
	Scanned      int
	ParseErrors  int
	SoloQueue    int
	OtherQueue   int
	Queues       int
	Earliest     time.Time
	Latest       time.Time
	Participants int
	// Champions is ordered by games played, then name.
	Champions []ChampionCount
}

// Scan decodes every match ex can see.
func Scan(ctx context.Context, ex *extract.Extractor) (Report, error) {
	var r Report
	queues := make(map[int]int)
	champions := make(map[string]int)
	var minCreated, maxCreated int64
	stats, err := ex.Each(ctx, func(m *riot.Match) {
		queues[m.Info.QueueID]++
		if gc := m.Info.GameCreation; gc > 0 {
			if minCreated == 0 || gc < minCreated {
				minCreated = gc
			}
			maxCreated = max(maxCreated, gc)
		}
		r.Participants += len(m.Info.Participants)
		for _, p := range m.Info.Participants {
			if p.ChampionName != "" {
				champions[p.ChampionName]++
			}
		}
	})
	if err != nil {
		return Report{}, err
	}
	r.Scanned = stats.Scanned
	r.ParseErrors = stats.ParseErrors
	r.Queues = len(queues)
	for q, n := range queues {
		if q == SoloQueueID {
			r.SoloQueue += n
		} else {
			r.OtherQueue += n
		}
	}
	if minCreated > 0 {
		r.Earliest = time.UnixMilli(minCreated).UTC()
		r.Latest = time.UnixMilli(maxCreated).UTC()
	}
	for name, games := range champions {
		r.Champions = append(r.Champions, ChampionCount{Name: name, Games: games})
	}
	slices.SortFunc(r.Champions, func(a, b ChampionCount) int {
		return cmp.Or(cmp.Compare(b.Games, a.Games), cmp.Compare(a.Name, b.Name))
	})
	return r, nil
}

// Render writes r as two tables, listing at most topN champions.
func Render(w io.Writer, r Report, topN int) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetStyle(table.StyleRounded)
	overview.SetTitle("Corpus")
	overview.AppendRows([]table.Row{
		{"Matches scanned", r.Scanned},
		{"Parse failures", r.ParseErrors},
		{"Solo queue", r.SoloQueue},
		{"Other queues", fmt.Sprintf("%d (%d queues)", r.OtherQueue, r.Queues)},
		{"Participants", r.Participants},
	})
	if !r.Earliest.IsZero() {
		overview.AppendRow(table.Row{"Time range", r.Earliest.Format(time.RFC3339) + " -> " + r.Latest.Format(time.RFC3339)})
	}
	overview.Render()

	if topN <= 0 || len(r.Champions) == 0 {
		return
	}
	champs := table.NewWriter()
	champs.SetOutputMirror(w)
	champs.SetStyle(table.StyleRounded)
	champs.SetTitle("Top champions")
	champs.AppendHeader(table.Row{"#", "Champion", "Games"})
	for i, c := range r.Champions[:min(topN, len(r.Champions))] {
		champs.AppendRow(table.Row{i + 1, c.Name, c.Games})
	}
	champs.Render()
}
