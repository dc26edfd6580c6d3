package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/extract"
	"github.com/JakeFAU/kraken/internal/kraken"
)

// Result describes a finished build.
type Result struct {
	Variant Variant
	Path    string
	Rows    int
	// Skipped counts input matches that could not produce a row.
	Skipped int
}

// Builder reads extracted tables and writes dataset files.
type Builder struct {
	opts   Options
	logger *zap.Logger
}

// New validates opts and returns a Builder.
func New(opts Options, logger *zap.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{opts: opts, logger: logger.Named("dataset")}, nil
}

// Build writes variant v into outDir. Inputs are checked before any table
// is opened.
func (b *Builder) Build(ctx context.Context, v Variant, in Inputs, outDir string) (Result, error) {
	if err := in.Validate(v); err != nil {
		return Result{}, err
	}
	if outDir == "" {
		return Result{}, kraken.Configf("dataset.out_dir", "an output directory is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("build %s: %w", v, err)
	}

	res := Result{Variant: v, Path: filepath.Join(outDir, v.FileName())}
	var err error
	switch v {
	case VariantPlayerProfile:
		res.Rows, err = b.buildProfiles(in, res.Path)
	case VariantTeamOutcome:
		res.Rows, err = b.buildTeamOutcome(in, res.Path)
	case VariantLobbyOutcome:
		res.Rows, res.Skipped, err = b.buildLobby(in, res.Path)
	}
	if err != nil {
		return Result{}, err
	}
	b.logger.Info("dataset written",
		zap.String("variant", string(v)),
		zap.String("path", res.Path),
		zap.Int("rows", res.Rows),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (b *Builder) buildProfiles(in Inputs, path string) (int, error) {
	players, err := extract.ReadParquet[extract.PlayerRow](in.PlayerTable)
	if err != nil {
		return 0, err
	}
	rows := Profiles(players, b.opts)
	return len(rows), extract.WriteTable(path, string(VariantPlayerProfile), rows)
}

func (b *Builder) buildTeamOutcome(in Inputs, path string) (int, error) {
	teams, err := extract.ReadParquet[extract.TeamRow](in.TeamTable)
	if err != nil {
		return 0, err
	}
	rows := TeamOutcomes(teams, b.opts)
	return len(rows), extract.WriteTable(path, string(VariantTeamOutcome), rows)
}

func (b *Builder) buildLobby(in Inputs, path string) (int, int, error) {
	// Only the draft half of the player schema is decoded.
	players, err := extract.ReadParquet[extract.PlayerDraft](in.PlayerTable)
	if err != nil {
		return 0, 0, err
	}
	labels, err := extract.ReadParquet[extract.TeamLabel](in.TeamTable)
	if err != nil {
		return 0, 0, err
	}
	var profiles []ProfileRow
	if !in.DraftOnly {
		profiles, err = extract.ReadParquet[ProfileRow](in.ProfileTable)
		if err != nil {
			return 0, 0, err
		}
	}
	rows, stats := Lobbies(players, labels, profiles, b.opts)
	if stats.Unlabeled > 0 {
		b.logger.Warn("matches without a team label were left out", zap.Int("matches", stats.Unlabeled))
	}
	return len(rows), stats.Unlabeled, extract.WriteTable(path, string(VariantLobbyOutcome), rows)
}
