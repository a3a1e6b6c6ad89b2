package cli

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ardnew/itom/cli/cmd"
	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/infer"
	"github.com/ardnew/itom/pkg"
	"github.com/ardnew/itom/registry"
)

// baseConfig is the base name of the configuration file and the name of
// the optional section holding flag values within it.
const baseConfig = "config"

// defaultDirMode is the default permission mode for created directories.
const defaultDirMode os.FileMode = 0o700

// CLI is the top-level command-line interface for itom.
type CLI struct {
	Log   logConfig       `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig     `embed:"" group:"pprof" prefix:"pprof-"`
	Store cmd.StoreConfig `embed:"" group:"store" prefix:"store-"`
	Cache cmd.CacheConfig `embed:"" group:"cache" prefix:"cache-"`
	Minio cmd.MinioConfig `embed:"" group:"cache" prefix:"minio-"`

	Path     []string      `help:"Directories searched for program sources, ahead of ${pathEnv}." type:"path"`
	Timeout  time.Duration `help:"Wall-clock budget of each top-level execution."`
	MaxDepth int           `default:"${maxDepth}" help:"Maximum include depth."`

	Run     cmd.Run     `cmd:"" help:"Run a program"`
	Add     cmd.Add     `cmd:"" help:"Register program sources"`
	List    cmd.List    `cmd:"" help:"List registered programs"             aliases:"ls"`
	Curry   cmd.Curry   `cmd:"" help:"Register a copy of a program with bound inputs"`
	Inspect cmd.Inspect `cmd:"" help:"Describe a program"`
	Refresh cmd.Refresh `cmd:"" help:"Pick up edited program sources"`
	Repl    cmd.Repl    `cmd:"" help:"Run programs interactively"`
	Init    cmd.Init    `cmd:"" help:"Initialize configuration file"`
	Version cmd.Version `cmd:"" help:"Print the version"`
}

// Run executes the itom CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := filepath.Join(pkg.ConfigDir(), baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath + ".yaml",
		cmd.CacheIdentifier:  pkg.CacheDir(),
		cmd.StoreIdentifier:  pkg.DataDir(),
		"storeTable":         registry.DefaultTable,
		"inferEndpoint":      infer.DefaultEndpoint,
		"maxDepth":           strconv.Itoa(compose.DefaultMaxDepth),
		"pathEnv":            pkg.PathEnv(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{
			cli.Log.group(),
			cli.Pprof.group(),
			{Key: "store", Title: "Program store"},
			{Key: "cache", Title: "Artifact cache"},
		}),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve(baseConfig), configFilePath+".yaml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	logger := cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	session := &cmd.Session{
		Store:    cli.Store,
		Cache:    cli.Cache,
		Minio:    cli.Minio,
		Path:     cli.Path,
		Timeout:  cli.Timeout,
		MaxDepth: cli.MaxDepth,
		Logger:   logger,
	}
	defer session.Close()

	// Stuff additional context values for use by commands. The provider
	// bound above reads ctx when a command runs.
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSession(ctx, session)

	return ktx.Run(&cli)
}

// mkdirAllRequired creates all required runtime directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
