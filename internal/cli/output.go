package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

const dateLayout = "2006-01-02"

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func joinCategories(cats []types.RunCategory) string {
	if len(cats) == 0 {
		return "-"
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

func shoeStatus(s *types.Shoe, restricted map[string]bool) string {
	var flags []string
	if s.IsRetired {
		flags = append(flags, "retired")
	}
	if restricted[s.ShoeID] {
		flags = append(flags, "restricted")
	}
	if len(flags) == 0 {
		return "active"
	}
	return strings.Join(flags, ",")
}

// writeShoeTable prints one row per shoe.
func writeShoeTable(w io.Writer, shoes []*types.Shoe, restricted map[string]bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKM\tWEAR\tCONDITION\tDEFAULTS\tSTATUS")
	for _, s := range shoes {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.0f%%\t%s\t%s\t%s\n",
			s.ShoeID, s.DisplayName(), s.TotalDistance, s.WearRatio*100,
			s.Condition(), joinCategories(s.DefaultRunTypes), shoeStatus(s, restricted))
	}
	return tw.Flush()
}

// writeShoeDetail prints a shoe with its statistics and personal bests.
func writeShoeDetail(w io.Writer, s *types.Shoe, restricted bool) error {
	st := s.Statistics()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", s.ShoeID)
	fmt.Fprintf(tw, "Name:\t%s\n", s.DisplayName())
	fmt.Fprintf(tw, "Brand/Model:\t%s %s\n", s.Brand, s.Model)
	fmt.Fprintf(tw, "Acquired:\t%s\n", s.AcquiredAt.Format(dateLayout))
	fmt.Fprintf(tw, "Lifespan:\t%.0f km\n", s.LifespanDistance)
	fmt.Fprintf(tw, "Status:\t%s\n", shoeStatus(s, map[string]bool{s.ShoeID: restricted}))
	fmt.Fprintf(tw, "Defaults:\t%s\n", joinCategories(s.DefaultRunTypes))
	fmt.Fprintf(tw, "Suitable:\t%s\n", joinCategories(s.SuitableRunTypes))
	fmt.Fprintf(tw, "Activities:\t%d\n", st.ActivityCount)
	fmt.Fprintf(tw, "Distance:\t%.2f km\n", st.TotalDistance)
	fmt.Fprintf(tw, "Duration:\t%s\n", st.TotalDuration.Round(time.Second))
	fmt.Fprintf(tw, "Average pace:\t%s /km\n", st.AveragePace)
	fmt.Fprintf(tw, "Wear:\t%.0f%% (%s)\n", st.WearRatio*100, s.Condition())
	if st.LastActivityAt != nil {
		fmt.Fprintf(tw, "Last activity:\t%s\n", st.LastActivityAt.Format(dateLayout))
	}
	for _, c := range types.ActivityCategories {
		pb, ok := st.PersonalBests.Lookup(c)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "Best %s:\t%s (%s)\n", c, pb.Elapsed.Round(time.Second), pb.ActivityID)
	}
	return tw.Flush()
}

// writeActivityTable prints one row per activity.
func writeActivityTable(w io.Writer, acts []types.Activity, owners map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tKM\tDURATION\tSHOE")
	for _, a := range acts {
		owner := owners[a.ActivityID]
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
			a.ActivityID, a.StartTime.Format("2006-01-02 15:04"), a.Distance/1000,
			a.Duration().Round(time.Second), owner)
	}
	return tw.Flush()
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
