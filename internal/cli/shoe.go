package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoerack/internal/rack"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

func (a *app) newShoeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shoe",
		Short: "Manage shoes",
	}
	cmd.AddCommand(
		a.newShoeAddCmd(),
		a.newShoeListCmd(),
		a.newShoeShowCmd(),
		a.newShoeEditCmd(),
		a.newShoeRetireCmd(),
		a.newShoeDeleteCmd(),
		a.newShoeDefaultCmd(),
		a.newShoeSuitableCmd(),
		a.newShoeRecomputeCmd(),
	)
	return cmd
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, usageErrorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t.UTC(), nil
}

// splitCategories parses a comma-separated list of run categories.
func splitCategories(s string) ([]types.RunCategory, error) {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return types.ParseRunCategories(names)
}

// printShoe writes one shoe in the selected output mode.
func (a *app) printShoe(cmd *cobra.Command, s *session, shoe *types.Shoe, verb string) error {
	restricted, err := s.rack.RestrictedShoeIDs()
	if err != nil {
		return err
	}
	isRestricted := idSet(restricted)[shoe.ShoeID]
	if a.flags.jsonMode {
		return printJSON(cmd, map[string]any{
			"shoe":       shoe,
			"statistics": shoe.Statistics(),
			"condition":  shoe.Condition(),
			"restricted": isRestricted,
		})
	}
	if verb != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, shoe.ShoeID, shoe.DisplayName())
		return nil
	}
	return writeShoeDetail(cmd.OutOrStdout(), shoe, isRestricted)
}

func (a *app) newShoeAddCmd() *cobra.Command {
	var in types.Shoe
	var acquired, suitable string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a shoe",
		Example: `  shoerack shoe add --brand Asics --model "Novablast 4" --lifespan 700
  shoerack shoe add --nickname "Race day" --suitable race,tempo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if acquired != "" {
				t, err := parseDate(acquired)
				if err != nil {
					return err
				}
				in.AcquiredAt = t
			}
			if suitable != "" {
				cats, err := splitCategories(suitable)
				if err != nil {
					return err
				}
				in.SuitableRunTypes = cats
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			shoe, err := s.rack.AddShoe(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printShoe(cmd, s, shoe, "Added shoe")
		},
	}
	cmd.Flags().StringVar(&in.Brand, "brand", "", "brand")
	cmd.Flags().StringVar(&in.Model, "model", "", "model")
	cmd.Flags().StringVar(&in.Nickname, "nickname", "", "nickname")
	cmd.Flags().Float64Var(&in.LifespanDistance, "lifespan", 0, "expected lifespan in kilometers")
	cmd.Flags().StringVar(&in.ImageRef, "image", "", "image reference")
	cmd.Flags().StringVar(&acquired, "acquired", "", "acquisition date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&suitable, "suitable", "", "suitable run categories, comma separated")
	return cmd
}

func (a *app) newShoeListCmd() *cobra.Command {
	var includeRetired bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shoes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			all, err := s.rack.Shoes()
			if err != nil {
				return err
			}
			shoes := all[:0]
			for _, shoe := range all {
				if shoe.IsRetired && !includeRetired {
					continue
				}
				shoes = append(shoes, shoe)
			}
			restricted, err := s.rack.RestrictedShoeIDs()
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, map[string]any{"shoes": shoes, "restricted": restricted})
			}
			return writeShoeTable(cmd.OutOrStdout(), shoes, idSet(restricted))
		},
	}
	cmd.Flags().BoolVarP(&includeRetired, "all", "a", false, "include retired shoes")
	return cmd
}

func (a *app) newShoeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <shoe-id>",
		Short: "Show a shoe with its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			shoe, err := s.rack.Shoe(args[0])
			if err != nil {
				return err
			}
			return a.printShoe(cmd, s, shoe, "")
		},
	}
}

func (a *app) newShoeEditCmd() *cobra.Command {
	var brand, model, nickname, image, acquired string
	var lifespan float64
	cmd := &cobra.Command{
		Use:   "edit <shoe-id>",
		Short: "Edit a shoe's descriptive fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit rack.ShoeEdit
			f := cmd.Flags()
			if f.Changed("brand") {
				edit.Brand = &brand
			}
			if f.Changed("model") {
				edit.Model = &model
			}
			if f.Changed("nickname") {
				edit.Nickname = &nickname
			}
			if f.Changed("image") {
				edit.ImageRef = &image
			}
			if f.Changed("lifespan") {
				edit.LifespanDistance = &lifespan
			}
			if f.Changed("acquired") {
				t, err := parseDate(acquired)
				if err != nil {
					return err
				}
				edit.AcquiredAt = &t
			}
			if edit.Empty() {
				return usageErrorf("nothing to edit; pass at least one field flag")
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			shoe, err := s.rack.EditShoe(cmd.Context(), args[0], edit)
			if err != nil {
				return err
			}
			return a.printShoe(cmd, s, shoe, "Updated shoe")
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "brand")
	cmd.Flags().StringVar(&model, "model", "", "model")
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname")
	cmd.Flags().StringVar(&image, "image", "", "image reference")
	cmd.Flags().Float64Var(&lifespan, "lifespan", 0, "expected lifespan in kilometers")
	cmd.Flags().StringVar(&acquired, "acquired", "", "acquisition date (YYYY-MM-DD)")
	return cmd
}

func (a *app) newShoeRetireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retire <shoe-id>",
		Short: "Retire a shoe, or reinstate a retired one",
		Long: "Retire toggles the retired flag. Retiring clears the shoe's default categories\n" +
			"without choosing a replacement.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			shoe, err := s.rack.RetireShoe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			verb := "Reinstated shoe"
			if shoe.IsRetired {
				verb = "Retired shoe"
			}
			return a.printShoe(cmd, s, shoe, verb)
		},
	}
}

func (a *app) newShoeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <shoe-id>",
		Short: "Delete a shoe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.rack.DeleteShoe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Deleted shoe %s\n", out.ShoeID)
			if len(out.LostDefaults) > 0 {
				fmt.Fprintf(w, "No default shoe is set for: %s\n", joinCategories(out.LostDefaults))
			}
			if out.NeedsDailyDefault {
				fmt.Fprintln(w, "Choose a new daily shoe with: shoerack shoe default <shoe-id> --categories daily")
			}
			return nil
		},
	}
}

func (a *app) newShoeDefaultCmd() *cobra.Command {
	var categories, mode string
	var clearDefaults bool
	cmd := &cobra.Command{
		Use:   "default <shoe-id>",
		Short: "Make a shoe the default for run categories",
		Long: "Default makes the shoe the only default for each given category. With --mode append\n" +
			"the categories are added to the shoe's current defaults; replace (the default)\n" +
			"drops the others. With --clear the categories are removed instead, and an empty\n" +
			"list clears every default the shoe holds.",
		Example: `  shoerack shoe default 0190... --categories daily,long
  shoerack shoe default 0190... --categories race --mode append
  shoerack shoe default 0190... --clear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := splitCategories(categories)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var shoe *types.Shoe
			if clearDefaults {
				shoe, err = s.rack.ClearDefaultShoe(cmd.Context(), args[0], cats)
			} else {
				shoe, err = s.rack.SetDefaultShoe(cmd.Context(), args[0], cats, types.DefaultMode(mode))
			}
			if err != nil {
				return err
			}
			return a.printShoe(cmd, s, shoe, "Defaults for shoe now "+joinCategories(shoe.DefaultRunTypes)+":")
		},
	}
	cmd.Flags().StringVarP(&categories, "categories", "c", "", "run categories, comma separated")
	cmd.Flags().StringVar(&mode, "mode", string(types.DefaultReplace), "replace or append")
	cmd.Flags().BoolVar(&clearDefaults, "clear", false, "remove the categories instead of setting them")
	return cmd
}

func (a *app) newShoeSuitableCmd() *cobra.Command {
	var categories string
	cmd := &cobra.Command{
		Use:   "suitable <shoe-id>",
		Short: "Set the run categories a shoe suits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := splitCategories(categories)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			shoe, err := s.rack.SetSuitableRunTypes(cmd.Context(), args[0], cats)
			if err != nil {
				return err
			}
			return a.printShoe(cmd, s, shoe, "Updated shoe")
		},
	}
	cmd.Flags().StringVarP(&categories, "categories", "c", "", "run categories, comma separated (empty clears)")
	return cmd
}

func (a *app) newShoeRecomputeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "recompute [shoe-id]",
		Short: "Recompute statistics from assigned activities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return usageErrorf("pass a shoe ID or --all")
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if all {
				if err := s.rack.RecomputeAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recomputed all shoes")
				return nil
			}
			stats, err := s.rack.RecomputeStatistics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %s: %d activities, %.2f km, wear %.0f%%\n",
				args[0], stats.ActivityCount, stats.TotalDistance, stats.WearRatio*100)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "recompute every shoe")
	return cmd
}
