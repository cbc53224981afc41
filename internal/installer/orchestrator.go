package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
	gh "github.com/prostore-ios/installer/internal/github"
	"github.com/prostore-ios/installer/internal/platform"
	"github.com/prostore-ios/installer/internal/selector"
	"github.com/prostore-ios/installer/internal/signing"
	"github.com/prostore-ios/installer/internal/version"
)

// ReleaseLister lists the releases of one repository.
type ReleaseLister interface {
	ListReleases(ctx context.Context) ([]catalog.Release, error)
}

// ReleaseSource opens a ReleaseLister for a repository, with an optional
// credential.
type ReleaseSource func(repository, token string) (ReleaseLister, error)

// AdvisorySource fetches and parses the advisory document.
type AdvisorySource interface {
	Fetch(ctx context.Context) (advisory.Document, error)
}

// Signer submits an artifact URL to the signing service.
type Signer interface {
	Submit(ctx context.Context, artifactURL string) (signing.Job, error)
}

// GitHubReleases returns a ReleaseSource backed by the GitHub API. The token
// passed to the source overrides opts.Token when non-empty.
func GitHubReleases(opts gh.Options) ReleaseSource {
	return func(repository, token string) (ReleaseLister, error) {
		o := opts
		if token != "" {
			o.Token = token
		}
		client, err := gh.NewClient(repository, o)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Options configures one run.
type Options struct {
	// Repository is the "owner/repo" identifier of the release source.
	Repository string
	// Token is an optional bearer credential for the release listing.
	Token string
	// IncludePrereleases admits prereleases into the eligible set.
	IncludePrereleases bool
	// VersionConstraint optionally narrows releases by semver tag, e.g. ">=2".
	VersionConstraint string
	// OnProgress, when set, is called synchronously on every state or
	// progress change of the run.
	OnProgress func(Snapshot)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Releases    ReleaseSource
	Advisory    AdvisorySource // nil disables recommendations
	Signer      Signer
	Platform    platform.Platform
	InstallBase string
	Logger      *slog.Logger
}

// Sentinel errors for orchestrator construction.
var (
	ErrReleaseSourceRequired = errors.New("release source is required")
	ErrSignerRequired        = errors.New("signer is required")
	ErrInstallBaseRequired   = errors.New("install base url is required")
)

// Orchestrator runs install sessions, at most one active at a time. Starting
// a new run supersedes the previous one.
type Orchestrator struct {
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	runs    uint64
	current *Session
	cancel  context.CancelFunc

	// outcome of the newest run that finished without being superseded
	settledRun uint64
	lastErr    error
}

// NewOrchestrator validates config and returns an Orchestrator.
func NewOrchestrator(config Config) (*Orchestrator, error) {
	if config.Releases == nil {
		return nil, ErrReleaseSourceRequired
	}
	if config.Signer == nil {
		return nil, ErrSignerRequired
	}
	if strings.TrimSpace(config.InstallBase) == "" {
		return nil, ErrInstallBaseRequired
	}
	if config.Platform.Name == "" {
		config.Platform = platform.Default()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{config: config, logger: logger}, nil
}

// Current returns the most recently started session, or nil.
func (o *Orchestrator) Current() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// LastError returns the terminal failure of the newest finished run, or nil
// when that run succeeded. Runs cancelled by a newer run are not recorded.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) settle(s *Session) {
	if s.Superseded() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.ID() >= o.settledRun {
		o.settledRun = s.ID()
		o.lastErr = s.Err()
	}
}

// Start begins a run and returns its session immediately. Any active run is
// cancelled; its late results land only in its own session.
func (o *Orchestrator) Start(ctx context.Context, opts Options) *Session {
	o.mu.Lock()
	if o.current != nil && !o.current.State().Terminal() {
		o.current.superseded.Store(true)
		o.logger.Info("superseding active install run", "run_id", o.current.ID())
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.runs++
	s := newSession(o.runs, opts.OnProgress)
	s.onSettle = o.settle
	runCtx, cancel := context.WithCancel(ctx)
	o.current = s
	o.cancel = cancel
	o.mu.Unlock()

	go func() {
		defer cancel()
		o.run(runCtx, s, opts)
	}()
	return s
}

func (o *Orchestrator) run(ctx context.Context, s *Session, opts Options) {
	log := o.logger.With("run_id", s.ID(), "repository", opts.Repository)
	log.Info("install run started", "include_prereleases", opts.IncludePrereleases)

	fail := func(err error) {
		if s.Superseded() && ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		s.fail(err)
		log.Error("install run failed", "error", s.Err())
	}

	s.enter(StateFetchingReleases, progressFetchingReleases)

	constraint, err := version.NewConstraint(opts.VersionConstraint)
	if err != nil {
		fail(err)
		return
	}
	lister, err := o.config.Releases(opts.Repository, opts.Token)
	if err != nil {
		fail(err)
		return
	}
	releases, err := lister.ListReleases(ctx)
	if err != nil {
		fail(err)
		return
	}
	s.advance(progressReleasesFetched)
	log.Debug("releases fetched", "count", len(releases))

	eligible, err := catalog.Filter(catalog.Constrain(releases, constraint), opts.IncludePrereleases)
	if err != nil {
		fail(err)
		return
	}
	s.advance(progressReleasesFiltered)
	log.Debug("releases filtered", "eligible", len(eligible), "constraint", constraint.String())

	recommended := o.recommendation(ctx, log)
	s.setRecommendation(recommended)
	s.advance(progressAdvisory)

	s.enter(StateSelectingAsset, progressSelectingAsset)
	sel, err := selector.Select(eligible, recommended, o.config.Platform.FileExt)
	if err != nil {
		fail(fmt.Errorf("%w: scanned %d releases for %s", err, len(eligible), o.config.Platform.FileExt))
		return
	}
	s.choose(sel.Release, sel.Asset)
	s.advance(progressAssetChosen)
	log.Info("asset selected",
		"release", sel.Release.DisplayName(),
		"asset", sel.Asset.FileName,
		"matched_recommendation", sel.MatchedRecommendation)

	s.enter(StateRequestingSignature, progressRequesting)
	job, err := o.config.Signer.Submit(ctx, sel.Asset.DownloadURL)
	if err != nil {
		fail(err)
		return
	}
	if strings.TrimSpace(job.ID) == "" {
		fail(fmt.Errorf("%w: %w", &signing.ServiceError{StatusCode: http.StatusOK, Message: "incomplete job descriptor"}, ErrMissingJobID))
		return
	}

	link, err := o.config.Platform.InstallLink(o.config.InstallBase, job.ID)
	if err != nil {
		fail(err)
		return
	}
	s.succeed(job.ID, link)
	log.Info("install link ready", "job_id", job.ID)
}

// recommendation consults the advisory; failures degrade to "".
func (o *Orchestrator) recommendation(ctx context.Context, log *slog.Logger) string {
	if o.config.Advisory == nil {
		return ""
	}
	doc, err := o.config.Advisory.Fetch(ctx)
	if err != nil {
		log.Warn("advisory unavailable, continuing without recommendation", "error", err)
		return ""
	}
	if entry, ok := doc.RecommendedEntry(); ok && entry.Revoked() {
		log.Warn("recommended certificate is revoked", "name", entry.Name)
	}
	return doc.Recommended
}
