package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"jellyplex/internal/config"
	"jellyplex/internal/library"
	"jellyplex/internal/logging"
	"jellyplex/internal/services"
	"jellyplex/internal/syncer"
)

type options struct {
	convertTo       string
	dryRun          bool
	deleteStrays    bool
	create          bool
	verbose         bool
	debug           bool
	logFormat       string
	updateFilenames bool
	verifyOnly      bool
	skipVerify      bool
	only            string
	checkColocation bool
	radarr          bool
	configPath      string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "jellyplex SOURCE TARGET",
		Short: "Hardlink a movie library between Jellyfin and Plex naming conventions",
		Long: "jellyplex mirrors a movie library into a second directory tree using\n" +
			"hardlinks, translating folder and file names between the Jellyfin and\n" +
			"Plex conventions. Both trees share the same bytes on disk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return services.Wrap(services.ErrUsage, "cli", "args",
					"expected exactly two arguments: SOURCE and TARGET", nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.convertTo, "convert-to", "auto",
		"target naming convention: jellyfin, plex, or auto (detect from source)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "log intended actions without touching the filesystem")
	cmd.Flags().BoolVar(&opts.deleteStrays, "delete", false, "remove target items with no matching source item")
	cmd.Flags().BoolVar(&opts.create, "create", false, "create the target directory when it does not exist")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-file activity")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log internal detail")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "log output format: console or json (default: console on a terminal)")
	cmd.Flags().BoolVar(&opts.updateFilenames, "update-filenames", false, "rename stale hardlinks to their current target names")
	cmd.Flags().BoolVar(&opts.verifyOnly, "verify-only", false, "check existing hardlinks without mutating anything")
	cmd.Flags().BoolVar(&opts.skipVerify, "skip-verify", false, "skip inode verification of existing links")
	cmd.Flags().StringVar(&opts.only, "only", "", "restrict the run to one movie folder (path or name)")
	cmd.Flags().BoolVar(&opts.checkColocation, "check-colocation", false, "verify MergerFS branch colocation before syncing")
	cmd.Flags().BoolVar(&opts.radarr, "radarr", false, "read the movie to sync from Radarr custom-script environment variables")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file path (default: $"+config.EnvConfigPath+")")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", services.ErrUsage, err)
	})

	return cmd
}

func runSync(ctx context.Context, opts *options, sourceArg, targetArg string) error {
	if opts.verifyOnly && opts.skipVerify {
		return services.Wrap(services.ErrUsage, "cli", "flags",
			"--verify-only and --skip-verify are mutually exclusive", nil)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "config", "cannot load configuration", err)
	}

	logger, err := newLogger(opts)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "logging", "cannot initialize logger", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	sourceRoot, err := resolveRoot(cfg, sourceArg)
	if err != nil {
		return err
	}
	targetRoot, err := resolveRoot(cfg, targetArg)
	if err != nil {
		return err
	}
	if sourceRoot == targetRoot {
		return services.Wrap(services.ErrValidation, "cli", "args",
			"source and target must be different directories", nil)
	}

	srcConv, dstConv, err := chooseConventions(opts.convertTo, sourceRoot)
	if err != nil {
		return err
	}

	only := opts.only
	if opts.radarr {
		path, doSync, err := radarrItem(cfg, sourceRoot)
		if err != nil {
			return err
		}
		if !doSync {
			logger.Info("radarr event requires no sync")
			return nil
		}
		only = path
	}

	source := library.New(sourceRoot, srcConv, logger)
	target := library.New(targetRoot, dstConv, logger)
	s := syncer.New(source, target, syncer.Options{
		DryRun:          opts.dryRun,
		Delete:          opts.deleteStrays,
		Create:          opts.create,
		UpdateFilenames: opts.updateFilenames,
		VerifyOnly:      opts.verifyOnly,
		SkipVerify:      opts.skipVerify,
		CheckColocation: opts.checkColocation,
		Only:            only,
	}, logger)

	summary, err := s.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(summary.Describe(opts.verifyOnly, opts.skipVerify))
	if isTerminal(os.Stdout) {
		fmt.Println(renderSummaryTable(summary, opts.verifyOnly))
	}
	return nil
}

func newLogger(opts *options) (*slog.Logger, error) {
	level := "warn"
	if opts.verbose {
		level = "info"
	}
	if opts.debug {
		level = "debug"
	}
	format := opts.logFormat
	if format == "" {
		format = "json"
		if isTerminal(os.Stderr) {
			format = "console"
		}
	}
	return logging.New(logging.Options{Level: level, Format: format, Output: os.Stderr})
}

// resolveRoot applies configured path mappings and normalizes to an absolute
// path. The directory does not have to exist yet (the target may be created).
func resolveRoot(cfg *config.Config, arg string) (string, error) {
	mapped := cfg.MapPath(arg)
	abs, err := filepath.Abs(mapped)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "args",
			fmt.Sprintf("cannot resolve path %q", arg), err)
	}
	return filepath.Clean(abs), nil
}

// chooseConventions maps the --convert-to selector to a (source, target)
// convention pair. Explicit selection trusts the caller for the source side;
// auto-detection samples the source library.
func chooseConventions(convertTo, sourceRoot string) (src, dst library.Convention, err error) {
	switch convertTo {
	case "auto", "":
		detected, ok := library.Detect(sourceRoot)
		if !ok {
			return nil, nil, services.Wrap(services.ErrValidation, "cli", "detect",
				fmt.Sprintf("cannot determine the naming convention of %s; use --convert-to", sourceRoot), nil)
		}
		return detected, library.Opposite(detected), nil
	default:
		dst, err := library.ForName(convertTo)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrUsage, "cli", "flags",
				fmt.Sprintf("unknown convention %q for --convert-to", convertTo), nil)
		}
		return library.Opposite(dst), dst, nil
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
