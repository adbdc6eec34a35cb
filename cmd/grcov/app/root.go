// Package app wires the grcov CLI surface (spec §6), directly structured on
// the teacher's cmd/defuzz/app: one cobra.Command tree, flags bound with
// spf13/pflag via spf13/cobra, "config supplies the default, an explicit
// flag wins" resolved by cmd.Flags().Changed.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grcov-go/grcov/internal/config"
	"github.com/grcov-go/grcov/internal/emitter"
	"github.com/grcov-go/grcov/internal/logger"
	"github.com/grcov-go/grcov/internal/pipeline"
)

// NewGrcovCommand creates the root command for the grcov tool.
func NewGrcovCommand() *cobra.Command {
	var (
		cfgFile           string
		binaryPath        string
		sourceDir         string
		prefixDir         string
		symlinkDepth      int
		ignoreNotExisting bool
		ignoreGlobs       []string
		keepOnlyGlobs     []string
		pathMappings      []string
		pathMappingFile   string
		branch            bool
		filter            string
		llvm              bool
		gcovPath          string
		exclLine          string
		exclStart         string
		exclStop          string
		exclBrLine        string
		exclBrStart       string
		exclBrStop        string
		outputTypes       []string
		outputPath        string
		threads           int
		precision         int
		logPath           string
		logLevel          string
	)

	cmd := &cobra.Command{
		Use:   "grcov [paths...]",
		Short: "Collect and aggregate code coverage from multiple reports.",
		Long: `grcov ingests coverage artifacts produced by multiple toolchains (GCC/LLVM
gcov, LLVM source-based coverage, lcov INFO, JaCoCo XML, Go coverprofile),
merges them into a single in-memory coverage model keyed by source file,
and emits that model in one or more report formats.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, ".")
			if err != nil {
				return err
			}
			cfg.Inputs = args

			if cmd.Flags().Changed("binary-path") || cfg.BinaryPath == "" {
				cfg.BinaryPath = binaryPath
			}
			if cmd.Flags().Changed("source-dir") || cfg.SourceDir == "" {
				cfg.SourceDir = sourceDir
			}
			if cmd.Flags().Changed("prefix-dir") || cfg.PrefixDir == "" {
				cfg.PrefixDir = prefixDir
			}
			if cmd.Flags().Changed("symlink-depth") {
				cfg.SymlinkDepth = symlinkDepth
			}
			if cmd.Flags().Changed("ignore-not-existing") {
				cfg.IgnoreNotExisting = ignoreNotExisting
			}
			if cmd.Flags().Changed("ignore") {
				cfg.IgnoreGlobs = ignoreGlobs
			}
			if cmd.Flags().Changed("keep-only") {
				cfg.KeepOnlyGlobs = keepOnlyGlobs
			}
			if cmd.Flags().Changed("path-mapping") {
				cfg.PathMappings = parsePathMappings(pathMappings)
			}
			if cmd.Flags().Changed("path-mapping-file") {
				fileMappings, err := config.LoadPathMappingFile(pathMappingFile)
				if err != nil {
					return err
				}
				cfg.PathMappings = append(cfg.PathMappings, fileMappings...)
			}
			if cmd.Flags().Changed("branch") {
				cfg.Branch = branch
			}
			if cmd.Flags().Changed("filter") {
				cfg.Filter = filter
			}
			if cmd.Flags().Changed("llvm") {
				cfg.LLVM = llvm
			}
			if cmd.Flags().Changed("gcov-path") {
				cfg.GcovPath = gcovPath
			}
			if cmd.Flags().Changed("excl-line") {
				cfg.ExclLine = exclLine
			}
			if cmd.Flags().Changed("excl-start") {
				cfg.ExclStart = exclStart
			}
			if cmd.Flags().Changed("excl-stop") {
				cfg.ExclStop = exclStop
			}
			if cmd.Flags().Changed("excl-br-line") {
				cfg.ExclBrLine = exclBrLine
			}
			if cmd.Flags().Changed("excl-br-start") {
				cfg.ExclBrStart = exclBrStart
			}
			if cmd.Flags().Changed("excl-br-stop") {
				cfg.ExclBrStop = exclBrStop
			}
			if cmd.Flags().Changed("output-types") {
				cfg.OutputTypes = outputTypes
			}
			if cmd.Flags().Changed("output-path") {
				cfg.OutputPath = outputPath
			}
			if cmd.Flags().Changed("threads") {
				cfg.Threads = threads
			}
			if cmd.Flags().Changed("precision") {
				cfg.Precision = precision
			}
			if cmd.Flags().Changed("log") {
				cfg.LogPath = logPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if cfg.LogPath != "" {
				if err := logger.InitWithFile(cfg.LogLevel, cfg.LogPath); err != nil {
					return err
				}
				defer logger.Close()
			} else {
				logger.Init(cfg.LogLevel)
				logger.SetLevel(cfg.LogLevel)
			}

			if err := config.LoadServiceCredentialsEnv(&cfg, ""); err != nil {
				return err
			}

			writers, err := buildWriters(cfg)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(context.Background(), cfg, writers...)
			if err != nil {
				return err
			}

			logger.Info("merged %d source files (%d total)", result.FilesMerged, result.Map.Len())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "grcov", "config file name (without extension), searched in the current directory")
	flags.StringVar(&binaryPath, "binary-path", "", "hint for locating binaries for LLVM source-based coverage")
	flags.StringVar(&sourceDir, "source-dir", "", "root used by existence checks and prefix logic")
	flags.StringVar(&prefixDir, "prefix-dir", "", "strip this prefix from keys")
	flags.IntVar(&symlinkDepth, "symlink-depth", 40, "max symlinked directories to follow before giving up on a branch")
	flags.BoolVar(&ignoreNotExisting, "ignore-not-existing", false, "drop entries whose source file no longer exists")
	flags.StringArrayVar(&ignoreGlobs, "ignore", nil, "glob of paths to drop (repeatable)")
	flags.StringArrayVar(&keepOnlyGlobs, "keep-only", nil, "glob of paths to keep exclusively (repeatable)")
	flags.StringArrayVar(&pathMappings, "path-mapping", nil, "FROM:TO path rewrite (repeatable)")
	flags.StringVar(&pathMappingFile, "path-mapping-file", "", "JSON file of [{\"from\":...,\"to\":...}] path rewrites")
	flags.BoolVar(&branch, "branch", false, "include branch data in the emitter output")
	flags.StringVar(&filter, "filter", "", "covered|uncovered")
	flags.BoolVar(&llvm, "llvm", false, "restrict gcno/gcda parsing to the LLVM variant")
	flags.StringVar(&gcovPath, "gcov-path", "", "explicit path to the gcov-compatible binary")
	flags.StringVar(&exclLine, "excl-line", "", "regex excluding a single line")
	flags.StringVar(&exclStart, "excl-start", "", "regex opening an excluded range")
	flags.StringVar(&exclStop, "excl-stop", "", "regex closing an excluded range")
	flags.StringVar(&exclBrLine, "excl-br-line", "", "regex excluding a single line's branches")
	flags.StringVar(&exclBrStart, "excl-br-start", "", "regex opening a branch-excluded range")
	flags.StringVar(&exclBrStop, "excl-br-stop", "", "regex closing a branch-excluded range")
	flags.StringSliceVar(&outputTypes, "output-types", []string{"lcov"}, "comma-separated list of writers to run")
	flags.StringVar(&outputPath, "output-path", "", "file if one writer, directory if many")
	flags.IntVar(&threads, "threads", 0, "worker count (0 = num_cpus)")
	flags.IntVar(&precision, "precision", 2, "decimal places for rendered percentages")
	flags.StringVar(&logPath, "log", "", "directory to write a timestamped log file into (stdout if unset)")
	flags.StringVar(&logLevel, "log-level", "info", "DEBUG|INFO|WARN|ERROR|FATAL")

	return cmd
}

func parsePathMappings(raw []string) []config.PathMapping {
	out := make([]config.PathMapping, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, config.PathMapping{From: parts[0], To: parts[1]})
	}
	return out
}

func buildWriters(cfg config.Config) ([]emitter.Writer, error) {
	types := cfg.OutputTypes
	if len(types) == 0 {
		types = []string{"lcov"}
	}

	writers := make([]emitter.Writer, 0, len(types))
	for _, t := range types {
		path := outputPathFor(cfg.OutputPath, t, len(types) > 1)
		switch strings.ToLower(t) {
		case "lcov":
			w, err := emitter.NewLcovWriter(path)
			if err != nil {
				return nil, err
			}
			writers = append(writers, w)
		case "json":
			writers = append(writers, emitter.NewJSONWriter(path, cfg.Precision))
		default:
			return nil, fmt.Errorf("unknown --output-types entry %q", t)
		}
	}
	return writers, nil
}

func outputPathFor(base, writerType string, multiple bool) string {
	if base == "" {
		base = "."
	}
	if !multiple {
		return base
	}
	return base + "/" + writerType + ".out"
}
