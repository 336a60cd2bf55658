// Command differ is an interactive git diff viewer with persistent,
// position-stable annotations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fwojciec/differ"
	"github.com/fwojciec/differ/bubbletea"
	"github.com/fwojciec/differ/chroma"
	"github.com/fwojciec/differ/fs"
	"github.com/fwojciec/differ/fsnotify"
	"github.com/fwojciec/differ/git"
	"github.com/fwojciec/differ/mem"
	"github.com/fwojciec/differ/sqlite"
	"github.com/fwojciec/differ/toml"
	"github.com/fwojciec/differ/udiff"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &App{
		Args:   os.Args[1:],
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := app.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "differ:", err)
		os.Exit(1)
	}
}

// App wires the command line to the viewer and the annotation store. The
// zero dependencies are resolved lazily so tests can substitute doubles.
type App struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Optional overrides; resolved from the environment when nil.
	Repo   differ.Repository
	Store  differ.AnnotationStore
	Viewer differ.Viewer
	Config *differ.Config
}

func (app *App) Run(ctx context.Context) error {
	args, err := ParseArgs(app.Args)
	if err != nil {
		return err
	}
	if args.Command == "help" {
		fmt.Fprint(app.Stdout, usage)
		return nil
	}

	cfg, err := app.loadConfig(args)
	if err != nil {
		return err
	}

	if app.Logger == nil {
		out := io.Writer(app.Stderr)
		level := slog.LevelWarn
		if cfg.LogFile != "" {
			if f, ferr := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); ferr == nil {
				defer f.Close()
				out = f
				level = slog.LevelDebug
			}
		}
		app.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	}

	repo, err := app.repository(ctx, cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := app.annotationStore(ctx, repo)
	if err != nil {
		return err
	}
	defer closeStore()

	switch args.Command {
	case "diff":
		return app.runDiff(ctx, args, cfg, repo, store)
	case "add":
		return app.runAdd(ctx, args, cfg, repo, store)
	case "list":
		return app.runList(ctx, args, store)
	case "export":
		return app.runExport(ctx, args, store)
	case "clear":
		return app.runClear(ctx, store)
	}
	return fmt.Errorf("unknown command %q", args.Command)
}

func (app *App) loadConfig(args *Args) (differ.Config, error) {
	var cfg differ.Config
	if app.Config != nil {
		cfg = *app.Config
	} else {
		loaded, err := toml.Load(fs.DefaultConfigPath())
		if err != nil {
			return differ.Config{}, err
		}
		cfg = loaded
	}
	if args.SideBySide {
		cfg.SideBySide = true
	}
	if args.ContextLines >= 0 {
		cfg.ContextLines = args.ContextLines
	}
	return cfg, nil
}

func (app *App) repository(ctx context.Context, cfg differ.Config) (differ.Repository, error) {
	if app.Repo != nil {
		return app.Repo, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return git.Discover(ctx, wd, udiff.NewEngine(), cfg.ContextLines)
}

// annotationStore opens the sqlite store for the repository; a corrupt
// database degrades to an in-memory store so the viewer stays usable.
func (app *App) annotationStore(ctx context.Context, repo differ.Repository) (differ.AnnotationStore, func(), error) {
	if app.Store != nil {
		return app.Store, func() {}, nil
	}
	root := repo.Root()
	store, err := sqlite.Open(ctx, fs.DefaultDatabasePath(), root, filepath.Base(root))
	if err != nil {
		if errors.Is(err, differ.ErrCorrupt) {
			app.Logger.Warn("annotation database is corrupt; annotations will not persist", "path", fs.DefaultDatabasePath(), "err", err)
			return mem.NewStore(), func() {}, nil
		}
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func (app *App) runDiff(ctx context.Context, args *Args, cfg differ.Config, repo differ.Repository, store differ.AnnotationStore) error {
	provider, ok := repo.(differ.DiffProvider)
	if !ok {
		return fmt.Errorf("repository does not support diffing")
	}

	resolver := differ.NewResolver(cfg)
	stager := differ.NewStager(repo)
	annotator := differ.NewAnnotator(repo, store, resolver)
	reloader := differ.NewReloader(provider, repo, store, resolver, stager, cfg, args.Range, args.Paths)

	session := differ.NewSession(cfg)
	if err := reloader.Reload(ctx, session); err != nil {
		return err
	}

	requests := make(chan struct{}, 1)
	changed := make(chan struct{}, 1)
	reloader.OnSwap = func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	var events <-chan struct{}
	if args.Range.Live() {
		watcher, err := fsnotify.NewWatcher(repo.Root(), cfg.Ignore, cfg.ReloadDebounce())
		if err != nil {
			app.Logger.Warn("file watching unavailable; use R to reload", "err", err)
		} else {
			defer watcher.Close()
			events = watcher.Events()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reloader.Run(runCtx, session, events, requests, func(err error) {
		session.SetStatus("reload failed: " + err.Error())
	})

	viewer := app.Viewer
	if viewer == nil {
		wt, err := repo.Resolve(ctx, differ.RevWorktree)
		if err != nil {
			return err
		}
		tok := chroma.NewTokenizer()
		viewer = &bubbletea.Viewer{
			Stager:    stager,
			Annotator: annotator,
			Tokenizer: tok,
			Detector:  tok,
			ReadFile: func(path string) ([]byte, error) {
				return repo.ReadFile(ctx, wt, path)
			},
			Requests:        requests,
			Changed:         changed,
			ShowAnnotations: cfg.ShowAnnotations,
		}
	}
	return viewer.View(ctx, session)
}

func (app *App) runAdd(ctx context.Context, args *Args, cfg differ.Config, repo differ.Repository, store differ.AnnotationStore) error {
	annotator := differ.NewAnnotator(repo, store, differ.NewResolver(cfg))
	a, err := annotator.Create(ctx, args.File, args.Line, args.EndLine, args.Kind, args.Body)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Stdout, "added %s at %s:%d\n", a.Kind, a.FilePath, a.Line)
	return nil
}

func (app *App) runList(ctx context.Context, args *Args, store differ.AnnotationStore) error {
	var anns []*differ.Annotation
	var err error
	if args.File != "" {
		anns, err = store.ListByFile(ctx, args.File)
	} else {
		anns, err = store.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	for _, a := range anns {
		resolved := ""
		if a.Resolved {
			resolved = " [resolved]"
		}
		fmt.Fprintf(app.Stdout, "%s:%d\t%s%s\t%s\n", a.FilePath, a.Line, a.Kind, resolved, a.Body)
	}
	return nil
}

func (app *App) runExport(ctx context.Context, args *Args, store differ.AnnotationStore) error {
	format, _ := differ.ParseExportFormat(args.Format)
	anns, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	out, err := differ.Export(anns, format)
	if err != nil {
		return err
	}
	if args.Output != "" {
		return os.WriteFile(args.Output, []byte(out), 0o644)
	}
	fmt.Fprint(app.Stdout, out)
	return nil
}

func (app *App) runClear(ctx context.Context, store differ.AnnotationStore) error {
	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Stdout, "removed %d annotations\n", n)
	return nil
}

const usage = `usage: differ [command] [options]

commands:
  diff [--staged] [-s] [-c N] [revisions] [-- paths]
        view changes (default). Revisions follow git diff: none compares
        the worktree to the index, one revision compares the worktree to
        it, A..B compares commits, A...B uses the merge base.
  add -f FILE -l LINE [--end-line N] [-t comment|todo] TEXT
        attach an annotation without opening the viewer
  list [-f FILE]
        print annotations
  export [-f markdown|json] [-o FILE]
        export annotations
  clear
        delete all annotations for this repository
`
