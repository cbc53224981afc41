// Package cli provides the command-line interface for the installer.
// It supports a YAML configuration file and drives the install pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
	"github.com/prostore-ios/installer/internal/config"
	gh "github.com/prostore-ios/installer/internal/github"
	"github.com/prostore-ios/installer/internal/installer"
	"github.com/prostore-ios/installer/internal/platform"
	"github.com/prostore-ios/installer/internal/signing"
	"github.com/prostore-ios/installer/internal/transport"
	"github.com/prostore-ios/installer/internal/version"
)

// Sentinel errors for command input.
var (
	ErrRepositoryRequired  = errors.New("repository is required: pass --repo or set defaults.repository")
	ErrSigningURLRequired  = errors.New("signing url is required: pass --signing-url or set endpoints.signing_url")
	ErrInstallBaseRequired = errors.New("install base is required: pass --install-base or set endpoints.install_base")
	ErrConfigExists        = errors.New("config file already exists")
)

// NewApp creates and configures the main CLI application.
func NewApp() *cli.App {
	repoFlag := &cli.StringFlag{
		Name:    "repo",
		Aliases: []string{"r"},
		Usage:   "release repository as owner/repo (default: defaults.repository)",
		EnvVars: []string{"INSTALLER_REPOSITORY"},
	}
	tokenFlag := &cli.StringFlag{
		Name:    "token",
		Usage:   "GitHub token for the release listing",
		EnvVars: []string{"INSTALLER_GITHUB_TOKEN", "GITHUB_TOKEN"},
	}
	prereleaseFlag := &cli.BoolFlag{
		Name:  "prerelease",
		Usage: "consider prereleases (default: defaults.include_prereleases)",
	}
	constraintFlag := &cli.StringFlag{
		Name:  "constraint",
		Usage: "semver constraint on release tags (e.g. \">=2.0\")",
	}
	outputFlag := &cli.StringFlag{
		Name:  "output",
		Value: outputText,
		Usage: "output format (text, json)",
	}

	return &cli.App{
		Name:     "prostore-installer",
		Usage:    "Resolve the latest build, request a signature and print the install link",
		Version:  "1.0.0",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultConfigFile,
				Usage:   "path to installer configuration file",
				EnvVars: []string{"INSTALLER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"INSTALLER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "log format on stderr (json, text)",
				EnvVars: []string{"INSTALLER_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "install",
				Usage: "Select the newest artifact, submit it for signing and print the install link",
				Flags: []cli.Flag{
					repoFlag,
					tokenFlag,
					prereleaseFlag,
					constraintFlag,
					&cli.StringFlag{
						Name:    "signing-url",
						Usage:   "signing service endpoint (default: endpoints.signing_url)",
						EnvVars: []string{"INSTALLER_SIGNING_URL"},
					},
					&cli.StringFlag{
						Name:    "install-base",
						Usage:   "install host base URL (default: endpoints.install_base)",
						EnvVars: []string{"INSTALLER_INSTALL_BASE"},
					},
					&cli.BoolFlag{
						Name:  "no-advisory",
						Usage: "skip the certificate advisory",
					},
					outputFlag,
				},
				Action: installCommand,
			},
			{
				Name:  "releases",
				Usage: "List eligible releases and their installable assets",
				Flags: []cli.Flag{
					repoFlag,
					tokenFlag,
					prereleaseFlag,
					constraintFlag,
					&cli.BoolFlag{
						Name:  "all",
						Usage: "list every release, including drafts",
					},
					outputFlag,
				},
				Action: releasesCommand,
			},
			{
				Name:  "advisory",
				Usage: "Show the certificate advisory: recommendation, entries and updates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "advisory document URL (default: endpoints.advisory_url)",
					},
					outputFlag,
				},
				Action: advisoryCommand,
			},
			{
				Name:  "config",
				Usage: "Manage the configuration file",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write a default configuration file",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "overwrite an existing file",
							},
							outputFlag,
						},
						Action: configInitCommand,
					},
				},
			},
		},
	}
}

// newLogger builds the command logger from the global flags.
func newLogger(c *cli.Context) *slog.Logger {
	return NewLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
}

// loadConfig reads the --config file, falling back to defaults when it is
// missing.
func loadConfig(c *cli.Context, logger *slog.Logger) (*config.Config, error) {
	path := c.String("config")
	cfg, found, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !found {
		logger.Debug("config file not found, using defaults", "path", path)
	}
	return cfg, nil
}

// resolveRepository prefers the flag over the configured default.
func resolveRepository(c *cli.Context, cfg *config.Config) (string, error) {
	repo := strings.TrimSpace(c.String("repo"))
	if repo == "" {
		repo = strings.TrimSpace(cfg.Defaults.Repository)
	}
	if repo == "" {
		return "", ErrRepositoryRequired
	}
	return repo, nil
}

func includePrereleases(c *cli.Context, cfg *config.Config) bool {
	if c.IsSet("prerelease") {
		return c.Bool("prerelease")
	}
	return cfg.Defaults.IncludePrereleases
}

// targetPlatform resolves the platform and applies endpoint overrides for
// the manifest path and trigger prefix.
func targetPlatform(cfg *config.Config) (platform.Platform, error) {
	p, err := cfg.TargetPlatform()
	if err != nil {
		return platform.Platform{}, err
	}
	if cfg.Endpoints.ManifestPath != "" {
		p.ManifestPath = cfg.Endpoints.ManifestPath
	}
	if cfg.Endpoints.TriggerPrefix != "" {
		p.TriggerPrefix = cfg.Endpoints.TriggerPrefix
	}
	return p, nil
}

func githubOptions(cfg *config.Config) gh.Options {
	return gh.Options{
		BaseURL:    cfg.Endpoints.GitHubAPIBase,
		HTTPClient: transport.NewHTTPClient(cfg.HTTP.GetTimeout()),
		UserAgent:  cfg.HTTP.GetUserAgent(),
	}
}

func newAdvisoryFetcher(cfg *config.Config, url string) *advisory.Fetcher {
	if url == "" {
		url = cfg.Endpoints.AdvisoryURL
	}
	return advisory.NewFetcher(advisory.Config{
		URL:        url,
		UserAgent:  cfg.HTTP.GetUserAgent(),
		HTTPClient: transport.NewHTTPClient(cfg.HTTP.GetTimeout()),
	})
}

// buildOrchestrator wires the pipeline collaborators from configuration.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger, useAdvisory bool) (*installer.Orchestrator, error) {
	if strings.TrimSpace(cfg.Endpoints.SigningURL) == "" {
		return nil, ErrSigningURLRequired
	}
	if strings.TrimSpace(cfg.Endpoints.InstallBase) == "" {
		return nil, ErrInstallBaseRequired
	}
	p, err := targetPlatform(cfg)
	if err != nil {
		return nil, err
	}

	signer, err := signing.NewClient(signing.Config{
		Endpoint:   cfg.Endpoints.SigningURL,
		UserAgent:  cfg.HTTP.GetUserAgent(),
		HTTPClient: transport.NewHTTPClient(cfg.HTTP.GetTimeout()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create signing client: %w", err)
	}

	var source installer.AdvisorySource
	if useAdvisory {
		source = newAdvisoryFetcher(cfg, "")
	}

	return installer.NewOrchestrator(installer.Config{
		Releases:    installer.GitHubReleases(githubOptions(cfg)),
		Advisory:    source,
		Signer:      signer,
		Platform:    p,
		InstallBase: cfg.Endpoints.InstallBase,
		Logger:      logger,
	})
}

// installCommand implements the install command.
func installCommand(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := loadConfig(c, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if v := c.String("signing-url"); v != "" {
		cfg.Endpoints.SigningURL = v
	}
	if v := c.String("install-base"); v != "" {
		cfg.Endpoints.InstallBase = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	repo, err := resolveRepository(c, cfg)
	if err != nil {
		return err
	}

	orchestrator, err := buildOrchestrator(cfg, logger, !c.Bool("no-advisory"))
	if err != nil {
		logger.Error("failed to initialize installer", "error", err)
		return err
	}
	client := installer.NewClient(orchestrator)

	opts := installer.Options{
		Repository:         repo,
		Token:              c.String("token"),
		IncludePrereleases: includePrereleases(c, cfg),
		VersionConstraint:  c.String("constraint"),
		OnProgress: func(s installer.Snapshot) {
			logger.Info("install progress", "run_id", s.RunID, "state", s.State, "progress", s.Progress)
		},
	}
	if err := client.Start(c.Context, opts); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	result, err := newInstallResult(repo, client.Session())
	if err != nil {
		return err
	}
	return render(c.App.Writer, c.String("output"), result)
}

// releasesCommand implements the releases command.
func releasesCommand(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := loadConfig(c, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	repo, err := resolveRepository(c, cfg)
	if err != nil {
		return err
	}
	p, err := targetPlatform(cfg)
	if err != nil {
		return err
	}
	constraint, err := version.NewConstraint(c.String("constraint"))
	if err != nil {
		return err
	}

	opts := githubOptions(cfg)
	opts.Token = c.String("token")
	client, err := gh.NewClient(repo, opts)
	if err != nil {
		return err
	}

	releases, err := listReleases(c.Context, client, constraint, includePrereleases(c, cfg), c.Bool("all"))
	if err != nil {
		logger.Error("failed to list releases", "repository", repo, "error", err)
		return err
	}
	logger.Debug("releases listed", "repository", repo, "count", len(releases))

	result := ReleasesResult{Repository: repo, Extension: p.FileExt, Releases: []ReleaseSummary{}}
	for _, r := range releases {
		result.Releases = append(result.Releases, summarizeRelease(r, p.FileExt))
	}
	return render(c.App.Writer, c.String("output"), result)
}

// listReleases fetches releases and, unless all is set, applies the
// constraint and the eligibility filter.
func listReleases(ctx context.Context, lister ReleaseLister, constraint *version.Constraint, includePrereleases, all bool) ([]catalog.Release, error) {
	releases, err := lister.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	if all {
		catalog.SortNewestFirst(releases)
		return releases, nil
	}
	return catalog.Filter(catalog.Constrain(releases, constraint), includePrereleases)
}

// advisoryCommand implements the advisory command.
func advisoryCommand(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := loadConfig(c, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	result, err := describeAdvisory(c.Context, newAdvisoryFetcher(cfg, c.String("url")), logger)
	if err != nil {
		logger.Error("failed to fetch advisory", "error", err)
		return err
	}
	return render(c.App.Writer, c.String("output"), result)
}

// describeAdvisory fetches the advisory and flags a revoked recommendation.
func describeAdvisory(ctx context.Context, fetcher AdvisoryFetcher, logger *slog.Logger) (AdvisoryResult, error) {
	doc, err := fetcher.Fetch(ctx)
	if err != nil {
		return AdvisoryResult{}, err
	}
	result := AdvisoryResult{Document: doc}
	if entry, ok := doc.RecommendedEntry(); ok && entry.Revoked() {
		result.RecommendedRevoked = true
		logger.Warn("recommended certificate is revoked", "name", entry.Name, "status", entry.RawStatus)
	}
	if !doc.HasRecommendation() {
		logger.Info("advisory has no recommendation")
	}
	return result, nil
}

// configInitCommand implements the config init command.
func configInitCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	return render(c.App.Writer, c.String("output"), ConfigInitResult{Path: path})
}
