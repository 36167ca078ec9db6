// Command hg2git converts a Mercurial repository into an equivalent Git
// history in a target Git repository.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/hg2git/hg2git/internal/baton"
	"gitlab.com/hg2git/hg2git/internal/commitbuild"
	"gitlab.com/hg2git/hg2git/internal/config"
	"gitlab.com/hg2git/hg2git/internal/gitsink"
	"gitlab.com/hg2git/hg2git/internal/hgsource"
	"gitlab.com/hg2git/hg2git/internal/pipeline"
	"gitlab.com/hg2git/hg2git/internal/refalloc"
	"gitlab.com/hg2git/hg2git/internal/xlog"
)

const version = "hg2git 0.1"

type cliOptions struct {
	configFile        string
	logFile           string
	endRevision       string
	quiet             bool
	progress          string
	progressSet       bool
	branches          string
	tags              string
	noDefaultConfig   bool
	verbose           []string
	project           []string
	targetRepository  string
	decorateCommitMsg []string
	convertHgignore   bool
	convertHgeol      bool
}

func main() {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:     "hg2git <repo path>",
		Short:   "Convert a Mercurial repository into an equivalent Git history",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.progressSet = cmd.Flags().Changed("progress")
			return run(args[0], opts)
		},
	}
	root.SetVersionTemplate(version + "\n")

	root.Flags().StringVarP(&opts.configFile, "config", "c", "", "XML file to configure conversion to Git")
	root.Flags().StringVar(&opts.logFile, "log", "", "logfile destination; defaults to stderr")
	root.Flags().StringVarP(&opts.endRevision, "end-revision", "e", "", "revision to stop input processing at")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress indication")
	root.Flags().StringVar(&opts.progress, "progress", "", "show progress, optionally with an update period in seconds")
	root.Flags().Lookup("progress").NoOptDefVal = "2"
	root.Flags().StringVar(&opts.branches, "branches", "refs/heads/", "namespace for branches")
	root.Flags().StringVar(&opts.tags, "tags", "refs/tags/", "namespace for tags")
	root.Flags().BoolVar(&opts.noDefaultConfig, "no-default-config", false, "don't use the hardcoded default mappings")
	root.Flags().StringArrayVar(&opts.verbose, "verbose", nil, "log verbosity: dump, dump_all, revs, all (repeatable)")
	root.Flags().StringArrayVar(&opts.project, "project", nil, "process only selected projects (comma-separable, '!' negates)")
	root.Flags().StringVar(&opts.targetRepository, "target-repository", "", "target Git repository to write to")
	root.Flags().StringArrayVar(&opts.decorateCommitMsg, "decorate-commit-message", nil, "commit message decorations: revision-id")
	root.Flags().BoolVar(&opts.convertHgignore, "convert-hgignore", false, "convert .hgignore files to .gitignore")
	root.Flags().BoolVar(&opts.convertHgeol, "convert-hgeol", false, "convert .hgeol files to .gitattributes")

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func run(repoPath string, raw *cliOptions) error {
	logOut, closeLog, err := openLogSink(raw.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	log := logrus.New()
	log.SetOutput(logOut)
	log.SetLevel(verbosityLevel(raw))

	verbose := verboseFlags(raw.verbose)

	if raw.targetRepository == "" {
		return xlog.Throw(xlog.Config, "--target-repository is required")
	}

	rawConfig, err := loadConfig(raw.configFile)
	if err != nil {
		return err
	}

	copts := config.Options{
		BranchesNamespace: raw.branches,
		TagsNamespace:     raw.tags,
		NoDefaultConfig:   raw.noDefaultConfig,
	}
	projects, err := config.Resolve(rawConfig, copts)
	if err != nil {
		return err
	}

	filters, err := config.ParseProjectFilters(raw.project)
	if err != nil {
		return xlog.Throw(xlog.Config, "--project: %v", err)
	}
	enabled := config.SelectEnabled(projects, filters)

	if verbose.dump || verbose.dumpAll {
		dump, err := config.Dump(enabled)
		if err != nil {
			return err
		}
		log.Debug("resolved configuration:\n" + dump)
	}

	var endRev *int64
	if raw.endRevision != "" {
		n, err := strconv.ParseInt(raw.endRevision, 10, 64)
		if err != nil {
			return xlog.Throw(xlog.Config, "--end-revision %q is not a number: %v", raw.endRevision, err)
		}
		endRev = &n
	}

	decorate := commitbuild.Options{}
	for _, d := range raw.decorateCommitMsg {
		if d == "revision-id" {
			decorate.DecorateRevisionID = true
		}
	}

	source, err := hgsource.Open(repoPath)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := gitsink.Open(raw.targetRepository)
	if err != nil {
		return err
	}
	defer sink.Close()

	bat := newBaton(raw, log)
	defer bat.Stop()

	p := pipeline.New(enabled, refalloc.New(), source, sink, log, bat, pipeline.Options{
		EndRevision:     endRev,
		DumpAll:         verbose.dumpAll,
		ConvertHgignore: raw.convertHgignore,
		ConvertHgeol:    raw.convertHgeol,
		Commit:          decorate,
	})

	stats, err := p.Run()
	if err != nil {
		return err
	}
	log.Infof("conversion complete: %d commits, %d skipped", stats.Processed, stats.Skipped)
	return nil
}

func openLogSink(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, xlog.Throw(xlog.Target, "opening --log file %q: %v", path, err)
	}
	return io.MultiWriter(os.Stderr, f), func() { f.Close() }, nil
}

func loadConfig(path string) (*config.RawConfig, error) {
	if path == "" {
		return &config.RawConfig{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, xlog.Throw(xlog.Config, "opening --config file %q: %v", path, err)
	}
	defer f.Close()
	return config.LoadXML(f)
}

// verboseSet is the decoded form of the repeatable, accumulating
// --verbose flag. "all" is treated as equivalent to "dump,revs" and
// "dump_all" as an orthogonal extension neither implied by nor implying
// "all".
type verboseSet struct {
	dump, dumpAll, revs bool
}

func verboseFlags(values []string) verboseSet {
	var v verboseSet
	for _, raw := range values {
		for _, tok := range strings.Split(raw, ",") {
			switch strings.TrimSpace(tok) {
			case "dump":
				v.dump = true
			case "dump_all":
				v.dumpAll = true
			case "revs":
				v.revs = true
			case "all":
				v.dump = true
				v.revs = true
			}
		}
	}
	return v
}

func verbosityLevel(raw *cliOptions) logrus.Level {
	if raw.quiet {
		return logrus.WarnLevel
	}
	v := verboseFlags(raw.verbose)
	if v.dumpAll {
		return logrus.TraceLevel
	}
	if v.dump {
		return logrus.DebugLevel
	}
	if v.revs {
		return logrus.InfoLevel
	}
	return logrus.InfoLevel
}

func newBaton(raw *cliOptions, log *logrus.Logger) *baton.Baton {
	if raw.quiet {
		return baton.New(nil, 0)
	}
	if !raw.progressSet {
		return baton.New(nil, 0)
	}
	interval := 2 * time.Second
	if raw.progress != "" {
		if secs, err := strconv.ParseFloat(raw.progress, 64); err == nil && secs > 0 {
			interval = time.Duration(secs * float64(time.Second))
		}
	}
	return baton.New(log.Out, interval)
}

func exitCodeFor(err error) int {
	if exc, ok := err.(*xlog.Exception); ok {
		fmt.Fprintln(os.Stderr, exc.Error())
		switch exc.Class {
		case xlog.Config, xlog.Pattern:
			return 1
		case xlog.Source:
			return 2
		case xlog.Target:
			return 3
		}
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
