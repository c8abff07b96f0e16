// Package compare is the stackdiff service: it fetches the configuration
// of two stacks, compares it file by file, and keeps the results.
package compare

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/document"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
	fluxmetrics "github.com/fluxcd/stackdiff/pkg/metrics"
	"github.com/fluxcd/stackdiff/pkg/policy"
	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/store"
	"github.com/fluxcd/stackdiff/pkg/yamldiff"
)

const (
	DefaultConfigFile  = "config-overrides.yml"
	DefaultConcurrency = 4
)

// Config says where in a stack the configuration lives. Every
// directory under FolderA and FolderB of the first stack holds a
// ConfigFile.
type Config struct {
	FolderA     string
	FolderB     string
	ConfigFile  string
	Concurrency int
	// Paths matching these are left out of every result.
	Ignore policy.Ignore
}

// Service implements api.Server over a source of stacks and a store of
// diffs.
type Service struct {
	source  source.Source
	store   store.Store
	config  Config
	version string
	logger  log.Logger
	now     func() time.Time
}

var _ api.Server = &Service{}

func New(src source.Source, st store.Store, config Config, version string, logger log.Logger) *Service {
	if config.ConfigFile == "" {
		config.ConfigFile = DefaultConfigFile
	}
	if config.Concurrency < 1 {
		config.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Service{
		source:  src,
		store:   st,
		config:  config,
		version: version,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return nil
}

func (s *Service) Version(ctx context.Context) (string, error) {
	return s.version, nil
}

func (s *Service) GetDiff(ctx context.Context, id string) (api.FileDiff, error) {
	if err := validID(id); err != nil {
		return api.FileDiff{}, err
	}
	return s.store.Get(ctx, id)
}

// InsertDiff stores a diff worked out elsewhere, as not yet reviewed.
func (s *Service) InsertDiff(ctx context.Context, diff api.DiffBase) (api.FileDiff, error) {
	if err := validStacks(diff.StackA, diff.StackB); err != nil {
		return api.FileDiff{}, err
	}
	now := s.now()
	record := api.FileDiff{
		DiffBase:  withEmptyPaths(diff),
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, err := s.store.Insert(ctx, []api.FileDiff{record})
	if err != nil {
		return api.FileDiff{}, errors.Wrap(err, "storing diff")
	}
	return stored[0], nil
}

func (s *Service) AllDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	if err := validStacks(stacks.StackA, stacks.StackB); err != nil {
		return api.DiffsResponse{}, err
	}
	diffs, err := s.store.FindByStacks(ctx, stacks.StackA, stacks.StackB)
	if err != nil {
		return api.DiffsResponse{}, errors.Wrap(err, "finding diffs")
	}
	return api.DiffsResponse{
		StackA:        stacks.StackA,
		StackB:        stacks.StackB,
		FilesWithDiff: diffs,
	}, nil
}

// LatestDiffs gives the diffs from the most recent computation for
// the stacks.
func (s *Service) LatestDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	all, err := s.AllDiffs(ctx, stacks)
	if err != nil {
		return api.DiffsResponse{}, err
	}
	if len(all.FilesWithDiff) == 0 {
		s.logger.Log("stack-a", stacks.StackA, "stack-b", stacks.StackB, "err", "no comparison found")
		return api.DiffsResponse{}, &fluxerr.Error{
			Type: fluxerr.Missing,
			Help: "Couldn't get diff for these stacks",
			Err:  fmt.Errorf("no diffs between %s and %s", stacks.StackA, stacks.StackB),
		}
	}

	latest := all.FilesWithDiff[0].CreatedAt
	for _, d := range all.FilesWithDiff[1:] {
		if d.CreatedAt.After(latest) {
			latest = d.CreatedAt
		}
	}
	diffs := []api.FileDiff{}
	for _, d := range all.FilesWithDiff {
		if d.CreatedAt.Equal(latest) {
			diffs = append(diffs, d)
		}
	}
	all.FilesWithDiff = diffs
	return all, nil
}

// Configs gives the raw text of a file in both stacks.
func (s *Service) Configs(ctx context.Context, p api.ConfigsPayload) (api.ConfigsResponse, error) {
	if err := validStacks(p.StackA, p.StackB); err != nil {
		return api.ConfigsResponse{}, err
	}
	if p.File == "" {
		return api.ConfigsResponse{}, fluxerr.NewUser(errors.New("no file given"))
	}
	configA, err := s.source.File(ctx, p.StackA, p.File)
	if err != nil {
		return api.ConfigsResponse{}, err
	}
	configB, err := s.source.File(ctx, p.StackB, p.File)
	if err != nil {
		return api.ConfigsResponse{}, err
	}
	return api.ConfigsResponse{
		StackA:  p.StackA,
		StackB:  p.StackB,
		File:    p.File,
		ConfigA: string(configA),
		ConfigB: string(configB),
	}, nil
}

func (s *Service) ToggleReview(ctx context.Context, p api.ToggleReviewPayload) (api.ToggleReviewResponse, error) {
	if err := validID(p.ID); err != nil {
		return api.ToggleReviewResponse{}, err
	}
	n, err := s.store.ToggleReview(ctx, p.ID, s.now())
	if err != nil {
		return api.ToggleReviewResponse{}, err
	}
	return api.ToggleReviewResponse{Status: n}, nil
}

// CompareDocuments compares two documents given in the request. Nothing
// is stored.
func (s *Service) CompareDocuments(ctx context.Context, req api.CompareRequest) (api.CompareResponse, error) {
	result, warnings, err := s.compareTexts([]byte(req.ConfigA), []byte(req.ConfigB))
	if err != nil {
		return api.CompareResponse{}, fluxerr.NewUser(err)
	}
	resp := api.CompareResponse{Result: result}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp, nil
}

func (s *Service) ListRepos(ctx context.Context) ([]source.Repo, error) {
	return s.source.Repos(ctx)
}

func (s *Service) CountRepos(ctx context.Context) (api.RepoCount, error) {
	repos, err := s.source.Repos(ctx)
	if err != nil {
		return api.RepoCount{}, err
	}
	return api.RepoCount{Count: len(repos)}, nil
}

func (s *Service) GetRepo(ctx context.Context, name string) (source.Repo, error) {
	if name == "" {
		return source.Repo{}, fluxerr.NewUser(errors.New("no repository name given"))
	}
	return s.source.Repo(ctx, name)
}

func (s *Service) RepoContents(ctx context.Context, repo, path string) ([]source.Entry, error) {
	if repo == "" {
		return nil, fluxerr.NewUser(errors.New("no repository name given"))
	}
	return s.source.Contents(ctx, repo, path)
}

// Warning is a yamldiff.Warning about one of the two documents.
type Warning struct {
	Document string
	yamldiff.Warning
}

func (w Warning) String() string {
	return w.Document + ": " + w.Warning.String()
}

func (s *Service) compareTexts(a, b []byte) (yamldiff.Result, []Warning, error) {
	return Texts(a, b, s.config.Ignore)
}

// Texts parses and compares two documents, sorting the result and
// leaving out ignored paths.
func Texts(a, b []byte, ignore policy.Ignore) (yamldiff.Result, []Warning, error) {
	result, warnings, err := diffTexts(a, b)
	if err != nil {
		return yamldiff.Result{}, nil, err
	}
	return filter(result, ignore), warnings, nil
}

func diffTexts(a, b []byte) (yamldiff.Result, []Warning, error) {
	docA, err := document.Parse(a)
	if err != nil {
		return yamldiff.Result{}, nil, errors.Wrap(err, "parsing first document")
	}
	docB, err := document.Parse(b)
	if err != nil {
		return yamldiff.Result{}, nil, errors.Wrap(err, "parsing second document")
	}

	var warnings []Warning
	for _, w := range yamldiff.Inspect(docA) {
		warnings = append(warnings, Warning{"first document", w})
	}
	for _, w := range yamldiff.Inspect(docB) {
		warnings = append(warnings, Warning{"second document", w})
	}
	return yamldiff.DiffDocuments(docA, docB), warnings, nil
}

func filter(result yamldiff.Result, ignore policy.Ignore) yamldiff.Result {
	if len(ignore) > 0 {
		result = yamldiff.Result{
			LeftOnly:  ignore.Filter(result.LeftOnly),
			RightOnly: ignore.Filter(result.RightOnly),
			Same:      ignore.Filter(result.Same),
			Changed:   ignore.Filter(result.Changed),
		}
	}
	result.Sort()
	return result
}

// ComputeAllDiffs compares the configuration file of every directory
// under the configured folders of the first stack, storing and
// returning a diff for each file that is not identical in both stacks.
func (s *Service) ComputeAllDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	if err := validStacks(stacks.StackA, stacks.StackB); err != nil {
		return api.DiffsResponse{}, err
	}
	logger := log.With(s.logger, "stack-a", stacks.StackA, "stack-b", stacks.StackB)
	now := s.now()

	dirs, err := s.configDirs(ctx, stacks.StackA)
	if err != nil {
		return api.DiffsResponse{}, err
	}
	logger.Log("folders", len(dirs))

	found := make([]*api.FileDiff, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			d, err := s.compareDir(gctx, log.With(logger, "folder", dir), stacks, dir)
			found[i] = d
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return api.DiffsResponse{}, err
	}

	diffs := []api.FileDiff{}
	for _, d := range found {
		if d == nil {
			continue
		}
		d.CreatedAt, d.UpdatedAt = now, now
		diffs = append(diffs, *d)
	}
	if len(diffs) > 0 {
		if diffs, err = s.store.Insert(ctx, diffs); err != nil {
			return api.DiffsResponse{}, errors.Wrap(err, "storing diffs")
		}
	}
	logger.Log("compared", len(dirs), "different", len(diffs))

	return api.DiffsResponse{
		StackA:        stacks.StackA,
		StackB:        stacks.StackB,
		FilesWithDiff: diffs,
	}, nil
}

// configDirs lists the directories under both configured folders of a
// stack.
func (s *Service) configDirs(ctx context.Context, stack string) ([]string, error) {
	var dirs []string
	for _, folder := range []string{s.config.FolderA, s.config.FolderB} {
		entries, err := s.source.Contents(ctx, stack, folder)
		if err != nil {
			return nil, err
		}
		for _, e := range source.Dirs(entries) {
			dirs = append(dirs, e.Path)
		}
	}
	return dirs, nil
}

// compareDir compares the configuration file in dir between the
// stacks. It returns nil if the file is identical in both.
func (s *Service) compareDir(ctx context.Context, logger log.Logger, stacks api.StacksPayload, dir string) (*api.FileDiff, error) {
	file := path.Join(dir, s.config.ConfigFile)

	textA, err := s.source.File(ctx, stacks.StackA, file)
	if err != nil {
		logger.Log("stack", stacks.StackA, "err", err)
		return nil, err
	}
	textB, err := s.source.File(ctx, stacks.StackB, file)
	switch {
	case fluxerr.IsMissing(err):
		logger.Log("stack", stacks.StackB, "missing", file)
		filesCompared.With(fluxmetrics.LabelOutcome, fluxmetrics.OutcomeMissing).Add(1)
		return &api.FileDiff{
			DiffBase: api.DiffBase{
				StackA:           stacks.StackA,
				StackB:           stacks.StackB,
				File:             dir,
				LeftNotRight:     []string{api.LeftOnlyAll},
				RightNotLeft:     []string{},
				SameKeyDiffValue: []string{},
			},
		}, nil
	case err != nil:
		logger.Log("stack", stacks.StackB, "err", err)
		return nil, err
	}

	raw, warnings, err := diffTexts(textA, textB)
	if err != nil {
		return nil, &fluxerr.Error{
			Type: fluxerr.User,
			Help: fmt.Sprintf("Could not compare %s between %s and %s: %s. Fix the file so it is valid YAML, then compute the diffs again.", file, stacks.StackA, stacks.StackB, err.Error()),
			Err:  err,
		}
	}
	for _, w := range warnings {
		logger.Log("warning", w.String())
	}
	result := filter(raw, s.config.Ignore)
	logger.Log("left-only", len(result.LeftOnly), "right-only", len(result.RightOnly), "same", len(result.Same), "changed", len(result.Changed))

	// Files with no paths at all are recorded; files whose only
	// differences are ignored are not.
	if result.Identical() && !empty(raw) {
		filesCompared.With(fluxmetrics.LabelOutcome, fluxmetrics.OutcomeIdentical).Add(1)
		return nil, nil
	}
	filesCompared.With(fluxmetrics.LabelOutcome, fluxmetrics.OutcomeDifferent).Add(1)
	d := api.FileDiff{DiffBase: api.NewDiffBase(stacks.StackA, stacks.StackB, dir, result)}
	return &d, nil
}

func empty(r yamldiff.Result) bool {
	return len(r.LeftOnly)+len(r.RightOnly)+len(r.Same)+len(r.Changed) == 0
}

func validStacks(stackA, stackB string) error {
	if stackA == "" || stackB == "" {
		return fluxerr.NewUser(errors.New("both stack_a and stack_b must be given"))
	}
	return nil
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &fluxerr.Error{
			Type: fluxerr.User,
			Help: fmt.Sprintf("%q is not a diff ID; IDs look like 3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a.", id),
			Err:  errors.Wrapf(err, "parsing diff ID %q", id),
		}
	}
	return nil
}

func withEmptyPaths(d api.DiffBase) api.DiffBase {
	if d.LeftNotRight == nil {
		d.LeftNotRight = []string{}
	}
	if d.RightNotLeft == nil {
		d.RightNotLeft = []string{}
	}
	if d.SameKeyDiffValue == nil {
		d.SameKeyDiffValue = []string{}
	}
	return d
}
