package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/app"
	"github.com/JakeFAU/kraken/internal/extract"
)

func newExtractCmd() *cobra.Command {
	var storeDir string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Project the match store into CSV or Parquet tables",
	}
	cmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "match store directory (overrides store.dir)")
	extractor := func(cmd *cobra.Command) (*app.App, *extract.Extractor, error) {
		a, err := resolveApp(cmd.Context())
		if err != nil {
			return nil, nil, err
		}
		a.UseStoreDir(storeDir)
		ex, err := a.Extractor()
		if err != nil {
			return nil, nil, err
		}
		return a, ex, nil
	}
	cmd.AddCommand(newExtractCSVCmd(extractor), newExtractPlayersCmd(extractor), newExtractTeamsCmd(extractor))
	return cmd
}

type extractorFunc func(*cobra.Command) (*app.App, *extract.Extractor, error)

func newExtractCSVCmd(open extractorFunc) *cobra.Command {
	var puuid, out string
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write one player's matches as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ex, err := open(cmd)
			if err != nil {
				return err
			}
			rows, stats, err := ex.Basic(cmd.Context(), puuid)
			if err != nil {
				return err
			}
			write := func(w io.Writer) error { return extract.WriteCSV(w, rows) }
			if out == "" || out == "-" {
				err = write(cmd.OutOrStdout())
			} else {
				err = extract.WriteFile(out, write)
			}
			if err != nil {
				return err
			}
			logStats(a, "csv", out, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&puuid, "puuid", "", "player PUUID")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("puuid")
	return cmd
}

func newExtractPlayersCmd(open extractorFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Write one row per participant as Parquet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ex, err := open(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.Config().PlayersTable()
			}
			rows, stats, err := ex.Players(cmd.Context())
			if err != nil {
				return err
			}
			if err := extract.WriteTable(out, "players", rows); err != nil {
				return err
			}
			logStats(a, "players", out, stats)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d player rows to %s\n", stats.Rows, out)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output Parquet file (default extract.out_dir/extract.players_file)")
	return cmd
}

func newExtractTeamsCmd(open extractorFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Write one row per side as Parquet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ex, err := open(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.Config().TeamsTable()
			}
			rows, stats, err := ex.Teams(cmd.Context())
			if err != nil {
				return err
			}
			if err := extract.WriteTable(out, "teams", rows); err != nil {
				return err
			}
			logStats(a, "teams", out, stats)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d team rows to %s\n", stats.Rows, out)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output Parquet file (default extract.out_dir/extract.teams_file)")
	return cmd
}

func logStats(a *app.App, table, out string, stats extract.Stats) {
	a.Logger().Info("extraction finished",
		zap.String("table", table),
		zap.String("out", out),
		zap.Int("scanned", stats.Scanned),
		zap.Int("parse_errors", stats.ParseErrors),
		zap.Int("rows", stats.Rows))
}
