package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/insubria-survive/survive/internal/common"
)

// SyncInfo prints the last sync time and the sync counters per collection.
func (a *App) SyncInfo(ctx context.Context) error {
	counters, err := a.syncCounters()
	if err != nil {
		return err
	}

	for _, c := range common.Collections {
		at, err := a.metadata.LastSync(ctx, c)
		if err != nil {
			return err
		}
		last := "never"
		if !at.IsZero() {
			last = formatTime(at, a.loc)
		}

		line := fmt.Sprintf("%-11s last sync: %s", c, last)
		if stats := counters[c]; len(stats) > 0 {
			line += "  " + strings.Join(stats, " ")
		}
		printlnFn(line)
	}
	return nil
}

// syncCounters renders survive_sync_* counters as name=value by collection.
func (a *App) syncCounters() (map[string][]string, error) {
	out := make(map[string][]string)
	if a.gatherer == nil {
		return out, nil
	}

	families, err := a.gatherer.Gather()
	if err != nil {
		return nil, err
	}
	for _, f := range families {
		name := strings.TrimSuffix(strings.TrimPrefix(f.GetName(), "survive_sync_"), "_total")
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "collection" {
					out[l.GetValue()] = append(out[l.GetValue()], fmt.Sprintf("%s=%.0f", name, m.GetCounter().GetValue()))
				}
			}
		}
	}
	for c := range out {
		sort.Strings(out[c])
	}
	return out, nil
}
