package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/harvester"
	"github.com/JakeFAU/kraken/internal/riot"
)

func newResolveCmd() *cobra.Command {
	var riotID string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the PUUID behind a Riot ID",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			gameName, tagLine, err := riot.ParseRiotID(riotID)
			if err != nil {
				return err
			}
			client, _, err := a.RiotClient(harvester.EatPolicy())
			if err != nil {
				return err
			}
			acct, err := client.AccountByRiotID(cmd.Context(), gameName, tagLine)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", riotID, err)
			}
			a.Logger().Info("resolved riot id",
				zap.String("riot_id", acct.GameName+"#"+acct.TagLine),
				zap.String("puuid", acct.PUUID))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), acct.PUUID)
			return err
		},
	}
	cmd.Flags().StringVar(&riotID, "riot-id", "", "Riot ID as Name#TAG")
	_ = cmd.MarkFlagRequired("riot-id")
	return cmd
}
