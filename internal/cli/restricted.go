package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newRestrictedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restricted",
		Short: "List shoes locked by the free tier",
		Long: "Without premium only a limited number of shoes stay usable: the daily default,\n" +
			"then the most recently used shoes, then the most recently acquired. The rest can\n" +
			"be retired or deleted but not changed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := s.rack.RestrictedShoeIDs()
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, map[string]any{
					"premium":    a.tier().Premium,
					"limit":      a.tier().Limit,
					"restricted": ids,
				})
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No restricted shoes")
				return nil
			}
			for _, id := range ids {
				shoe, err := s.rack.Shoe(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, shoe.DisplayName())
			}
			return nil
		},
	}
}
