package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoerack/internal/importer"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

func (a *app) newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Import and list recorded activities",
	}
	cmd.AddCommand(a.newActivityImportCmd(), a.newActivityListCmd())
	return cmd
}

func (a *app) newActivityImportCmd() *cobra.Command {
	var shoeID string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import GPX or FIT files",
		Long: "Import parses each file into an activity with its distance samples. The activity\n" +
			"ID is derived from the file content, so importing a file twice keeps one copy.\n" +
			"With --shoe the imported activities are assigned to that shoe.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var imported []types.Activity
			var errs []error
			for _, path := range args {
				act, err := importer.ImportFile(cmd.Context(), s.store, path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				imported = append(imported, act)
			}

			if shoeID != "" && len(imported) > 0 {
				ids := make([]string, len(imported))
				for i, act := range imported {
					ids[i] = act.ActivityID
				}
				if _, err := s.rack.AssignActivities(cmd.Context(), ids, shoeID); err != nil {
					errs = append(errs, fmt.Errorf("assigning to %s: %w", shoeID, err))
				}
			}

			if a.flags.jsonMode {
				if err := printJSON(cmd, map[string]any{"imported": imported}); err != nil {
					return err
				}
			} else {
				for _, act := range imported {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%.2f km, %s)\n",
						act.ActivityID, act.Distance/1000, act.StartTime.Format("2006-01-02 15:04"))
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&shoeID, "shoe", "", "assign imported activities to this shoe")
	return cmd
}

func (a *app) newActivityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported activities with the shoe they are assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			acts, err := s.store.ListActivities(cmd.Context())
			if err != nil {
				return err
			}
			shoes, err := s.rack.Shoes()
			if err != nil {
				return err
			}
			owners := make(map[string]string)
			for _, shoe := range shoes {
				for _, id := range shoe.Workouts {
					owners[id] = shoe.ShoeID
				}
			}

			if a.flags.jsonMode {
				type row struct {
					types.Activity
					ShoeID string `json:"shoe_id,omitempty"`
				}
				rows := make([]row, len(acts))
				for i, act := range acts {
					rows[i] = row{Activity: act, ShoeID: owners[act.ActivityID]}
				}
				return printJSON(cmd, map[string]any{"activities": rows})
			}
			return writeActivityTable(cmd.OutOrStdout(), acts, owners)
		},
	}
}
