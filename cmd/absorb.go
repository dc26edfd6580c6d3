package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/harvester"
)

func newAbsorbCmd() *cobra.Command {
	var (
		seeds      seedFlags
		outDir     string
		mode       string
		roleFocus  string
		allowRanks string
	)
	defaults := harvester.AbsorbPolicy()
	var p harvester.Policy

	cmd := &cobra.Command{
		Use:   "absorb",
		Short: "Crawl matches with every knob exposed",
		Long: `absorb drains each queued player's match history, stores every new match
and queues the participants it discovers. Flags override the harvest and
quota sections of the config file.`,
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

			policy := a.Config().HarvestPolicy()
			flags := cmd.Flags()
			if flags.Changed("duration") {
				policy.Duration = p.Duration
			}
			if flags.Changed("max-per-player") {
				policy.MaxMatchesPerPlayer = p.MaxMatchesPerPlayer
			}
			if flags.Changed("max-total") {
				policy.MaxMatchesTotal = p.MaxMatchesTotal
			}
			if flags.Changed("idle-exit-after") {
				policy.IdleExitAfter = p.IdleExitAfter
			}
			if flags.Changed("log-interval") {
				policy.LogInterval = p.LogInterval
			}
			if flags.Changed("requests-per-window") {
				policy.RequestsPerWindow = p.RequestsPerWindow
			}
			if flags.Changed("window") {
				policy.Window = p.Window
			}
			if flags.Changed("mode") {
				m, err := frontier.ParseMode(mode)
				if err != nil {
					return err
				}
				policy.Mode = m
			}
			if flags.Changed("role-focus") {
				policy.RoleFocus = frontier.SplitList(roleFocus)
			}
			if flags.Changed("allow-ranks") {
				policy.AllowRanks = frontier.SplitList(allowRanks)
			}
			return runHarvest(cmd, a, policy, seedList)
		},
	}

	seeds.register(cmd, true)
	f := cmd.Flags()
	f.StringVar(&outDir, "out-dir", "", "match store directory (overrides store.dir)")
	f.DurationVar(&p.Duration, "duration", defaults.Duration, "total run time")
	f.IntVar(&p.MaxMatchesPerPlayer, "max-per-player", defaults.MaxMatchesPerPlayer, "matches saved per player before moving on")
	f.IntVar(&p.MaxMatchesTotal, "max-total", defaults.MaxMatchesTotal, "stop after saving this many matches (0 = no cap)")
	f.DurationVar(&p.IdleExitAfter, "idle-exit-after", defaults.IdleExitAfter, "stop when nothing new was saved for this long (0 = never)")
	f.DurationVar(&p.LogInterval, "log-interval", defaults.LogInterval, "progress report interval")
	f.IntVar(&p.RequestsPerWindow, "requests-per-window", defaults.RequestsPerWindow, "request ceiling per quota window")
	f.DurationVar(&p.Window, "window", defaults.Window, "quota window length")
	f.StringVar(&mode, "mode", string(defaults.Mode), "traversal mode: explore, focus or seed-only")
	f.StringVar(&roleFocus, "role-focus", "", "comma-separated positions to follow (TOP,JUNGLE,MIDDLE,BOTTOM,UTILITY)")
	f.StringVar(&allowRanks, "allow-ranks", "", "comma-separated solo-queue tiers to follow, e.g. GOLD,PLATINUM")
	return cmd
}
