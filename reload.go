package differ

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reloader re-runs the diff → re-anchor pipeline and swaps the result
// into the session. Filesystem change signals and explicit requests are
// coalesced within the debounce window into one reload.
type Reloader struct {
	provider DiffProvider
	repo     Repository
	store    AnnotationStore
	resolver *Resolver
	stager   *Stager // may be nil; reset on every swap
	debounce time.Duration

	rng   Range
	paths []string

	// OnSwap, when set, is invoked after every successful swap.
	OnSwap func()
}

// NewReloader builds a reloader for the given range and path filter.
func NewReloader(provider DiffProvider, repo Repository, store AnnotationStore, resolver *Resolver, stager *Stager, cfg Config, rng Range, paths []string) *Reloader {
	return &Reloader{
		provider: provider,
		repo:     repo,
		store:    store,
		resolver: resolver,
		stager:   stager,
		debounce: cfg.ReloadDebounce(),
		rng:      rng,
		paths:    paths,
	}
}

// BuildSnapshot computes the diff for the active range and re-resolves
// every annotation on the changed files. Per-file resolution is pure and
// independent, so it fans out across workers; successful non-exact
// resolutions are committed back to the store (anchors self-heal) before
// the snapshot is returned.
func (r *Reloader) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	d, err := r.provider.DiffRange(ctx, r.rng, r.paths)
	if err != nil {
		return nil, err
	}
	wt, err := r.repo.Resolve(ctx, RevWorktree)
	if err != nil {
		return nil, err
	}

	resolved := make([][]Resolved, len(d.Files))
	g, gctx := errgroup.WithContext(ctx)
	for i := range d.Files {
		g.Go(func() error {
			fd := &d.Files[i]
			path := fd.Path()
			anns, err := r.store.ListByFile(gctx, path)
			if err != nil {
				return err
			}
			if len(anns) == 0 {
				return nil
			}
			var current string
			if data, err := r.repo.ReadFile(gctx, wt, path); err == nil && !IsBinaryText(data) {
				current = string(data)
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			res := r.resolver.ResolveAll(anns, current, fd)
			for _, re := range res {
				if anchor, moved := r.resolver.Rehome(re, current); moved {
					end := 0
					if re.Annotation.EndLine > 0 {
						end = re.Line + (re.Annotation.EndLine - re.Annotation.Line)
					}
					if err := r.store.UpdateAnchor(gctx, re.Annotation.ID, re.Line, end, anchor); err != nil {
						return err
					}
					re.Annotation.Line, re.Annotation.EndLine, re.Annotation.Anchor = re.Line, end, anchor
				}
			}
			resolved[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Range:       r.rng,
		Files:       d.Files,
		Annotations: make(map[string][]Resolved, len(d.Files)),
		Taken:       time.Now(),
	}
	for i, fd := range d.Files {
		if len(resolved[i]) > 0 {
			snap.Annotations[fd.Path()] = resolved[i]
		}
	}
	return snap, nil
}

// Reload builds a snapshot and swaps it into the session.
func (r *Reloader) Reload(ctx context.Context, s *Session) error {
	snap, err := r.BuildSnapshot(ctx)
	if err != nil {
		return err
	}
	if r.stager != nil {
		r.stager.Reset()
	}
	s.Swap(snap)
	if r.OnSwap != nil {
		r.OnSwap()
	}
	return nil
}

// Run consumes change signals and explicit reload requests until the
// context is cancelled. Bursts arriving within the debounce window fold
// into a single reload. Errors are surfaced through onErr and do not stop
// the loop: a failed reload keeps the previous snapshot.
func (r *Reloader) Run(ctx context.Context, s *Session, changes <-chan struct{}, requests <-chan struct{}, onErr func(error)) {
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(r.debounce)
			fire = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			schedule()
		case _, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			schedule()
		case <-fire:
			timer, fire = nil, nil
			if err := r.Reload(ctx, s); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
