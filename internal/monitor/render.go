package monitor

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Render writes snap as two plain-text tables.
func Render(w io.Writer, snap Snapshot) error {
	if snap.View == nil {
		if snap.Err != nil {
			_, err := fmt.Fprintf(w, "waiting for first live view: %v\n", snap.Err)
			return err
		}
		_, err := fmt.Fprintln(w, "waiting for first live view")
		return err
	}

	v := snap.View
	fmt.Fprintf(w, "Live monitor  updated %s  active %d  completed %d\n",
		snap.FetchedAt.Format(time.TimeOnly), v.ActiveCount, v.CompletedCount)
	if snap.Stale() {
		fmt.Fprintf(w, "! last poll failed at %s: %v\n", snap.ErrAt.Format(time.TimeOnly), snap.Err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nIN PROGRESS")
	fmt.Fprintln(tw, "NAME\tCOLLEGE\tSECTION\tROUND\tANSWERED\tPROGRESS\tELAPSED")
	for _, a := range v.Active {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%.1f%%\t%s\n",
			a.Name, a.College, a.CurrentSection, a.CurrentRound,
			a.AnsweredCount, a.TotalQuestions, a.Progress,
			(time.Duration(a.ElapsedSeconds) * time.Second).String())
	}

	fmt.Fprintln(tw, "\nCOMPLETED")
	fmt.Fprintln(tw, "RANK\tNAME\tCOLLEGE\tSCORE\tACCURACY\tTIME")
	for _, r := range v.Completed {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%.1f%%\t%s\n",
			r.Rank, r.Name, r.College, r.TotalCorrect, r.TotalQuestions, r.Accuracy,
			(time.Duration(r.TimeTakenSeconds) * time.Second).String())
	}
	return tw.Flush()
}
