package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"codetracker/pkg/models"
)

var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Statistics commands",
	Long:  "Show, refresh and inspect your coding statistics",
}

func printView(w io.Writer, view *models.UserStats) {
	if len(view.Platforms) == 0 {
		fmt.Fprintln(w, "No statistics yet. Link a platform with 'tracker platforms set'.")
		return
	}

	agg := view.Aggregated
	fmt.Fprintf(w, "Total solved: %d (easy %d, medium %d, hard %d)\n",
		agg.TotalProblems, agg.TotalEasy, agg.TotalMedium, agg.TotalHard)
	fmt.Fprintf(w, "Contests:     %d\n\n", agg.TotalContests)

	for _, r := range view.Platforms {
		fmt.Fprintf(w, "%-11s %-20s solved %4d  rating %4d  rank %s\n",
			r.Platform, r.Username, r.Stats.TotalSolved, r.Stats.Rating, r.Stats.Rank)
		if r.FetchErrors > 0 {
			fmt.Fprintf(w, "            last fetch failed (%d in a row): %s\n", r.FetchErrors, r.LastError)
		}
	}
	if view.LastUpdated != nil {
		fmt.Fprintf(w, "\nLast updated: %s\n", view.LastUpdated.Local().Format(time.RFC1123))
	}
}
