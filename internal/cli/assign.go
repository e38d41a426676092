package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

func (a *app) newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <shoe-id> <activity-id>...",
		Short: "Assign activities to a shoe",
		Long: "Assign attaches the activities to the shoe and removes them from any other shoe,\n" +
			"then recomputes the statistics of every shoe involved.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorkoutChange(cmd, args, "Assigned", func(ctx context.Context, s *session, ids []string, shoeID string) (*types.Shoe, error) {
				return s.rack.AssignActivities(ctx, ids, shoeID)
			})
		},
	}
}

func (a *app) newUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <shoe-id> <activity-id>...",
		Short: "Remove activities from a shoe",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorkoutChange(cmd, args, "Unassigned", func(ctx context.Context, s *session, ids []string, shoeID string) (*types.Shoe, error) {
				return s.rack.UnassignActivities(ctx, ids, shoeID)
			})
		},
	}
}

type workoutChange func(ctx context.Context, s *session, ids []string, shoeID string) (*types.Shoe, error)

func (a *app) runWorkoutChange(cmd *cobra.Command, args []string, verb string, change workoutChange) error {
	shoeID, ids := args[0], args[1:]

	s, err := a.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	shoe, err := change(cmd.Context(), s, ids, shoeID)
	if err != nil {
		return err
	}
	if a.flags.jsonMode {
		return a.printShoe(cmd, s, shoe, "")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d activities; %s now has %d activities and %.2f km\n",
		verb, len(ids), shoe.DisplayName(), len(shoe.Workouts), shoe.TotalDistance)
	return nil
}
