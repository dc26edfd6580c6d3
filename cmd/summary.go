package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kraken/internal/summary"
)

func newSummaryCmd() *cobra.Command {
	var (
		storeDir string
		top      int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe the stored match corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			a.UseStoreDir(storeDir)
			ex, err := a.Extractor()
			if err != nil {
				return err
			}
			report, err := summary.Scan(cmd.Context(), ex)
			if err != nil {
				return err
			}
			summary.Render(cmd.OutOrStdout(), report, top)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeDir, "store-dir", "", "match store directory (overrides store.dir)")
	cmd.Flags().IntVar(&top, "top", 10, "champions to list")
	return cmd
}
