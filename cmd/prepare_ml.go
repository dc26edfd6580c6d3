package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/kraken/internal/dataset"
)

func newPrepareMLCmd() *cobra.Command {
	var (
		variant string
		in      dataset.Inputs
		outDir  string
		opts    dataset.Options
	)
	cmd := &cobra.Command{
		Use:   "prepare-ml",
		Short: "Build a machine-learning table from extracted Parquet files",
		Long: `prepare-ml builds one of three datasets:

  player-profile-only  rolling history per player and role, strictly prior matches
  team-outcome         one row per side with that side's own statistics
  lobby-outcome        champion select only, optionally joined with profiles

lobby-outcome reads profiles from --profile-table, or from the profile file in
--out-dir when one exists. Pass --draft-only to build it without history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			v, err := dataset.ParseVariant(variant)
			if err != nil {
				return err
			}
			cfg := a.Config()
			flags := cmd.Flags()
			if !flags.Changed("player-table") {
				in.PlayerTable = cfg.PlayersTable()
			}
			if !flags.Changed("team-table") {
				in.TeamTable = cfg.TeamsTable()
			}
			if !flags.Changed("out-dir") {
				outDir = cfg.Dataset.OutDir
			}
			if v == dataset.VariantLobbyOutcome && !in.DraftOnly && in.ProfileTable == "" {
				in.ProfileTable = existing(filepath.Join(outDir, dataset.VariantPlayerProfile.FileName()))
			}
			base := cfg.DatasetOptions()
			if flags.Changed("history-size") {
				base.HistorySize = opts.HistorySize
			}
			if flags.Changed("min-matches") {
				base.MinMatches = opts.MinMatches
			}
			if flags.Changed("queue") {
				base.QueueID = opts.QueueID
			}

			b, err := dataset.New(base, a.Logger())
			if err != nil {
				return err
			}
			res, err := b.Build(cmd.Context(), v, in, outDir)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s rows to %s\n", res.Rows, res.Variant, res.Path)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&variant, "variant", "", "player-profile-only, team-outcome or lobby-outcome")
	f.StringVar(&in.PlayerTable, "player-table", "", "player Parquet table (default from extract config)")
	f.StringVar(&in.TeamTable, "team-table", "", "team Parquet table (default from extract config)")
	f.StringVar(&in.ProfileTable, "profile-table", "", "player profile table for lobby-outcome")
	f.BoolVar(&in.DraftOnly, "draft-only", false, "build lobby-outcome without player profiles")
	f.StringVar(&outDir, "out-dir", "", "output directory (default dataset.out_dir)")
	f.IntVar(&opts.HistorySize, "history-size", dataset.DefaultHistorySize, "prior matches averaged per profile")
	f.IntVar(&opts.MinMatches, "min-matches", dataset.DefaultMinMatches, "prior matches a profile row needs")
	f.IntVar(&opts.QueueID, "queue", dataset.SoloQueueID, "queue id to keep, 0 keeps every queue")
	_ = cmd.MarkFlagRequired("variant")
	return cmd
}

// existing returns path when it names a file.
func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
