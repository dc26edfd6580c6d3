package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kraken/internal/harvester"
)

func newEatCmd() *cobra.Command {
	var (
		seeds  seedFlags
		outDir string
	)
	policy := harvester.EatPolicy()

	cmd := &cobra.Command{
		Use:   "eat",
		Short: "Short, conservative crawl for checking a key and a seed",
		Long: `eat runs the same harvest as absorb with a fixed safe preset: 60 requests
per two minutes, 20 matches per player, at most 1000 matches, focused
expansion and a 10 minute run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			seedList, err := seeds.load()
			if err != nil {
				return err
			}
			a.UseStoreDir(outDir)
			return runHarvest(cmd, a, policy, seedList)
		},
	}
	seeds.register(cmd, false)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "match store directory (overrides store.dir)")
	cmd.Flags().DurationVar(&policy.Duration, "duration", policy.Duration, "total run time")
	return cmd
}
