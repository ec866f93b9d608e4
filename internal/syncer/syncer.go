// Package syncer reconciles two movie libraries by hardlinking every video,
// sidecar, and asset file from the source into the target under the target's
// naming convention. All work is synchronous and single-threaded; mutation
// order within a movie is deterministic.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jellyplex/internal/hardlink"
	"jellyplex/internal/library"
	"jellyplex/internal/logging"
	"jellyplex/internal/preflight"
	"jellyplex/internal/services"
)

// Options are the behavior switches for one run.
type Options struct {
	DryRun          bool
	Delete          bool
	Create          bool
	UpdateFilenames bool
	VerifyOnly      bool
	SkipVerify      bool
	CheckColocation bool
	Only            string // restrict the run to one movie folder (path or name)
}

// Syncer drives one source→target reconciliation run.
type Syncer struct {
	source *library.Library
	target *library.Library
	links  *hardlink.Manager
	opts   Options
	logger *slog.Logger
}

// New builds a syncer for the given library pair.
func New(source, target *library.Library, opts Options, logger *slog.Logger) *Syncer {
	return &Syncer{
		source: source,
		target: target,
		links:  hardlink.NewManager(logger, opts.DryRun),
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "syncer"),
	}
}

// Run executes the preflight guards and then the reconciliation. A conflicted
// library plan is not an error: the conflicts are logged, nothing is mutated,
// and the summary reports zero movies. Context cancellation stops between
// items; the in-flight item completes.
func (s *Syncer) Run(ctx context.Context) (Summary, error) {
	if err := s.prepare(); err != nil {
		return Summary{}, err
	}

	if s.opts.Only != "" {
		return s.runSingle(ctx)
	}
	return s.runFull(ctx)
}

// prepare validates both roots and runs the safety guards that must pass
// before any mutation.
func (s *Syncer) prepare() error {
	info, err := os.Stat(s.source.Root)
	if err != nil || !info.IsDir() {
		return services.Wrap(services.ErrValidation, "syncer", "prepare",
			fmt.Sprintf("source library %s is not an accessible directory", s.source.Root), err)
	}

	targetMissing := false
	if info, err := os.Stat(s.target.Root); err != nil {
		if !s.opts.Create {
			return services.Wrap(services.ErrValidation, "syncer", "prepare",
				fmt.Sprintf("target library %s does not exist (use --create)", s.target.Root), err)
		}
		targetMissing = true
	} else if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "syncer", "prepare",
			fmt.Sprintf("target library %s is not a directory", s.target.Root), nil)
	}

	if targetMissing {
		if s.opts.VerifyOnly {
			// Nothing to verify; the per-movie passes return empty.
		} else if s.opts.DryRun {
			s.logger.Info("MKDIR", logging.String("path", s.target.Root))
		} else {
			if err := os.MkdirAll(s.target.Root, 0o755); err != nil {
				return services.Wrap(services.ErrValidation, "syncer", "prepare",
					fmt.Sprintf("cannot create target library %s", s.target.Root), err)
			}
			targetMissing = false
		}
	}

	// Filesystem checks need a target directory to stat; a dry run against a
	// missing target skips them.
	union := false
	if !targetMissing {
		result, u := preflight.CheckSameFilesystem(s.source.Root, s.target.Root)
		union = u
		if !result.Passed {
			return services.Wrap(services.ErrSafety, "preflight", "same-filesystem", result.Detail, nil)
		}
		s.logger.Debug("preflight passed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	if s.opts.CheckColocation && union {
		result := preflight.CheckColocation(s.source, s.target, s.logger)
		if !result.Passed {
			return services.Wrap(services.ErrSafety, "preflight", "colocation", result.Detail, nil)
		}
		s.logger.Debug("preflight passed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	if s.opts.Delete && s.opts.Only == "" {
		result := preflight.CheckSourcePopulated(s.source.Root)
		if !result.Passed {
			return services.Wrap(services.ErrSafety, "preflight", "source-populated", result.Detail, nil)
		}
	}

	return nil
}

// runFull reconciles every movie in the source library and then sweeps the
// target root for strays.
func (s *Syncer) runFull(ctx context.Context) (Summary, error) {
	s.logger.Info("syncing library",
		logging.String("from", s.source.DisplayName()),
		logging.String("to", s.target.DisplayName()),
		logging.String("source", s.source.Root),
		logging.String("target", s.target.Root))

	items, expected, err := s.plan()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrValidation, "syncer", "plan", "cannot plan library sync", err)
	}
	if items == nil && expected == nil {
		// Conflicted plan, already logged. Nothing was mutated.
		return Summary{}, nil
	}

	var summary Summary
	for _, item := range items {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		stats := s.processMovie(ctx, item.SourcePath, item.Movie)
		summary.Movies++
		summary.Add(stats)
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	summary.Removed += s.cleanLibraryStrays(expected)
	return summary, nil
}

// runSingle restricts the run to one movie folder. Library-level stray
// handling is skipped: a partial view of the source must not judge the rest
// of the target.
func (s *Syncer) runSingle(ctx context.Context) (Summary, error) {
	folder, ok := ResolveMovieFolder(s.source, s.opts.Only)
	if !ok {
		return Summary{}, services.Wrap(services.ErrValidation, "syncer", "resolve",
			fmt.Sprintf("%q does not resolve to a movie folder under %s", s.opts.Only, s.source.Root), nil)
	}

	movie, ok := s.source.ParseMoviePath(folder)
	if !ok {
		return Summary{}, services.Wrap(services.ErrValidation, "syncer", "resolve",
			fmt.Sprintf("folder %q does not match the %s naming convention",
				filepath.Base(folder), s.source.DisplayName()), nil)
	}

	s.logger.Info("syncing single movie",
		logging.String("folder", filepath.Base(folder)),
		logging.String("to", s.target.DisplayName()))

	var summary Summary
	stats := s.processMovie(ctx, folder, movie)
	summary.Movies++
	summary.Add(stats)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}
