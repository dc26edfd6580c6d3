package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/kraken/internal/api"
	"github.com/JakeFAU/kraken/internal/app"
	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/harvester"
	"github.com/JakeFAU/kraken/internal/id/uuid"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/progress"
	"github.com/JakeFAU/kraken/internal/progress/sinks"
)

const hubCloseTimeout = 5 * time.Second

// promSink registers the run gauges once per process.
var promSink = sync.OnceValues(func() (*sinks.PrometheusSink, error) {
	return sinks.NewPrometheusSink(nil)
})

// seedFlags select where seed identifiers come from.
type seedFlags struct {
	puuids []string
	file   string
}

func (s *seedFlags) register(cmd *cobra.Command, withFile bool) {
	cmd.Flags().StringSliceVar(&s.puuids, "seed-puuid", nil, "seed player PUUID (repeatable)")
	if withFile {
		cmd.Flags().StringVar(&s.file, "seed-file", "", "file with one PUUID per line; # starts a comment")
	}
}

func (s *seedFlags) load() ([]string, error) {
	seeds := append([]string(nil), s.puuids...)
	if s.file != "" {
		f, err := os.Open(s.file)
		if err != nil {
			return nil, kraken.Configf("seed_file", "%v", err)
		}
		defer f.Close()
		fromFile, err := frontier.ParseSeeds(f)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, fromFile...)
	}
	if len(seeds) == 0 {
		return nil, kraken.Configf("seeds", "pass --seed-puuid or --seed-file")
	}
	return seeds, nil
}

// runHarvest wires one crawl: quota governor, Riot client, match store,
// optional catalog, progress hub and, when configured, the status server.
func runHarvest(cmd *cobra.Command, a *app.App, policy harvester.Policy, seeds []string) error {
	ctx := cmd.Context()
	logger := a.Logger()
	if err := policy.Validate(); err != nil {
		return err
	}

	client, gov, err := a.RiotClient(policy)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	cat, err := a.Catalog(ctx)
	if err != nil {
		return err
	}

	latest := sinks.NewLatestSink()
	hubSinks := []progress.Sink{sinks.NewLogSink(logger), latest}
	if prom, err := promSink(); err == nil {
		hubSinks = append(hubSinks, prom)
	} else {
		logger.Warn("progress gauges unavailable", zap.Error(err))
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	deps := harvester.Deps{
		Source:   client,
		Store:    store,
		Catalog:  cat,
		Progress: hub,
		RunID:    uuid.New().MustNewID(),
	}
	if len(policy.AllowRanks) > 0 {
		deps.Ranks = client
	}
	h, err := harvester.New(deps, policy, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	var summary harvester.Summary
	g.Go(func() error {
		defer stopServer()
		var runErr error
		summary, runErr = h.Run(gctx, seeds)
		return runErr
	})
	if addr := a.Config().Metrics.Addr; addr != "" {
		srv := api.NewServer(latest, logger)
		g.Go(func() error { return srv.Serve(runCtx, addr) })
	}
	err = g.Wait()

	qs := gov.Stats()
	logger.Info("quota usage",
		zap.Int64("admitted", qs.Admitted),
		zap.Int64("waits", qs.Waits),
		zap.Duration("waited", qs.Waited))
	renderSummary(cmd.OutOrStdout(), summary)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	return nil
}

func renderSummary(w io.Writer, s harvester.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Harvest " + s.RunID)
	t.AppendRows([]table.Row{
		{"Stop reason", string(s.Reason)},
		{"Elapsed", s.Elapsed.Round(time.Second).String()},
		{"Matches downloaded", s.MatchesSaved},
		{"Already stored", s.AlreadyStored},
		{"Identifiers visited", s.IdentifiersVisited},
		{"Identifiers drained", s.IdentifiersDrained},
		{"Frontier remaining", s.FrontierRemaining},
		{"Participants seen (approx.)", s.ParticipantsSeen},
		{"API requests", s.Requests},
		{"Errors skipped", s.SkippedErrors()},
	})
	if s.CatalogFailures > 0 {
		t.AppendRow(table.Row{"Catalog failures", s.CatalogFailures})
	}
	t.Render()
}
