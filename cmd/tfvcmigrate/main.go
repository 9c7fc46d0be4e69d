// Command tfvcmigrate replays a TFVC project-collection history into a new
// Git repository (§6 CLI surface).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/techsola/tfvc-migrator/internal/authors"
	"github.com/techsola/tfvc-migrator/internal/config"
	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/migrate"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
)

const progName = "tfvcmigrate"

const usage = `Usage: %s [flags] <project-collection-url> <root-path>

  <project-collection-url>  e.g. https://tfs.example.com/DefaultCollection
  <root-path>                the TFVC root to migrate, e.g. $/MyProject

Flags:
`

// rootPathChanges implements flag.Value to accept --root-path-changes
// repeatably, in the style of git-codereview's repeatable -v count flag.
type rootPathChanges struct {
	values []string
}

func (r *rootPathChanges) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprint(r.values)
}

func (r *rootPathChanges) Set(s string) error {
	r.values = append(r.values, s)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	flags := flag.NewFlagSet(progName, flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, progName)
		flags.PrintDefaults()
	}

	authorsPath := flags.String("authors", "", "path to the authors-mapping file (required)")
	outDir := flags.String("out-dir", "", "target directory for the migrated repository (required)")
	minChangeset := flags.Int("min-changeset", 0, "inclusive lower changeset bound (0 = unbounded)")
	maxChangeset := flags.Int("max-changeset", 0, "inclusive upper changeset bound (0 = unbounded)")
	pat := flags.String("pat", "", "personal access token for the History Source")
	parallelism := flags.Int("parallelism", 0, "blob-download fan-out degree (0 = default)")
	runConfigPath := flags.String("run-config", "", "optional YAML run-config file")
	var rpc rootPathChanges
	flags.Var(&rpc, "root-path-changes", "CSn:$/new root-path move, repeatable")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		return 1
	}

	if flags.NArg() != 2 {
		flags.Usage()
		return 1
	}

	opts := &config.Options{
		ProjectCollectionURL: flags.Arg(0),
		RootPath:             flags.Arg(1),
		AuthorsPath:          *authorsPath,
		OutDir:               *outDir,
		MinChangeset:         *minChangeset,
		MaxChangeset:         *maxChangeset,
		PAT:                  *pat,
		Parallelism:          *parallelism,
	}

	for _, s := range rpc.values {
		rc, err := config.ParseRootPathChange(s)
		if err != nil {
			logger.Println(err)
			return 1
		}
		opts.RootPathChanges = append(opts.RootPathChanges, rc)
	}

	if *runConfigPath != "" {
		rc, err := config.LoadRunConfig(*runConfigPath)
		if err != nil {
			logger.Println(err)
			return 1
		}
		applyRunConfig(opts, rc, logger)
	}

	if err := config.Validate(opts); err != nil {
		logger.Println(err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, logger, opts); err != nil {
		logger.Println(err)
		return 1
	}
	return 0
}

// applyRunConfig merges run-config settings alongside flags already set.
// The run-config's parallelism applies only when --parallelism was not
// given. Its root-path changes are appended after those given by flag; a
// changeset named by both is rejected later by config.Validate. The retry_*
// fields are not applied: the History Source always uses its default retry
// policy.
func applyRunConfig(opts *config.Options, rc *config.RunConfig, logger *log.Logger) {
	if opts.Parallelism == 0 {
		opts.Parallelism = rc.Parallelism
	}
	for _, s := range rc.RootPathChanges {
		parsed, err := config.ParseRootPathChange(s)
		if err != nil {
			logger.Printf("ignoring malformed run-config root-path-change %q: %v", s, err)
			continue
		}
		opts.RootPathChanges = append(opts.RootPathChanges, parsed)
	}
}

func execute(ctx context.Context, logger *log.Logger, opts *config.Options) error {
	authorsFile, err := os.Open(opts.AuthorsPath)
	if err != nil {
		return migerr.Wrap(migerr.Configuration, fmt.Errorf("opening authors file: %w", err))
	}
	authorsMap, err := authors.Parse(authorsFile)
	closeErr := authorsFile.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return migerr.Wrap(migerr.TransientIO, closeErr)
	}

	store, err := objectstore.Open(opts.OutDir)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotEmpty) {
			return migerr.Wrap(migerr.Precondition, err)
		}
		return migerr.Wrap(migerr.TransientIO, err)
	}

	history := historysource.NewRetryingSource(historysource.NewTFSClient(opts.ProjectCollectionURL, opts.PAT))

	return migrate.Run(ctx, logger, history, store, authorsMap, opts)
}
