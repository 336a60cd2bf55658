package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fwojciec/differ"
)

// Args is the parsed command line.
type Args struct {
	Command string // diff, add, list, export, clear

	// diff
	Range        differ.Range
	Paths        []string
	SideBySide   bool
	ContextLines int // -1 when not set on the command line

	// add
	File    string
	Line    int
	EndLine int
	Kind    differ.AnnotationKind
	Body    string

	// list / export
	Format string
	Output string
}

// ParseArgs interprets argv (without the program name). The first token
// selects a subcommand; anything else is treated as arguments to diff,
// which accepts git-style revision ranges: no revisions compares the
// worktree against the index, one revision compares the worktree against
// it, A..B compares two commits, and A...B compares B against the merge
// base of A and B. A bare `--` separates revisions from path filters.
func ParseArgs(argv []string) (*Args, error) {
	args := &Args{Command: "diff", ContextLines: -1, Kind: differ.KindComment, Format: "markdown"}

	if len(argv) > 0 {
		switch argv[0] {
		case "add", "list", "export", "clear":
			args.Command = argv[0]
			argv = argv[1:]
		case "diff":
			argv = argv[1:]
		case "help", "-h", "--help":
			args.Command = "help"
			return args, nil
		}
	}

	switch args.Command {
	case "diff":
		return args, parseDiffArgs(args, argv)
	case "add":
		return args, parseAddArgs(args, argv)
	case "list":
		return args, parseListArgs(args, argv)
	case "export":
		return args, parseExportArgs(args, argv)
	case "clear":
		if len(argv) > 0 {
			return nil, fmt.Errorf("clear: unexpected argument %q", argv[0])
		}
		return args, nil
	}
	return args, nil
}

func parseDiffArgs(args *Args, argv []string) error {
	staged := false
	var revs []string
	pathsOnly := false

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if pathsOnly {
			args.Paths = append(args.Paths, arg)
			continue
		}
		switch {
		case arg == "--":
			pathsOnly = true
		case arg == "--staged" || arg == "--cached":
			staged = true
		case arg == "-s" || arg == "--side-by-side":
			args.SideBySide = true
		case arg == "-c" || arg == "--context":
			i++
			if i >= len(argv) {
				return fmt.Errorf("diff: %s requires a value", arg)
			}
			n, err := strconv.Atoi(argv[i])
			if err != nil || n < 0 {
				return fmt.Errorf("diff: invalid context %q", argv[i])
			}
			args.ContextLines = n
		case strings.HasPrefix(arg, "-") && arg != "-":
			return fmt.Errorf("diff: unknown flag %q", arg)
		default:
			revs = append(revs, arg)
		}
	}

	rng, err := parseRange(revs, staged)
	if err != nil {
		return err
	}
	args.Range = rng
	return nil
}

// parseRange maps revision arguments onto a diff range the way git diff
// does.
func parseRange(revs []string, staged bool) (differ.Range, error) {
	if len(revs) == 0 {
		if staged {
			return differ.Range{Mode: differ.RangeStaged}, nil
		}
		return differ.Range{Mode: differ.RangeUnstaged}, nil
	}
	if staged {
		return differ.Range{}, fmt.Errorf("diff: --staged cannot be combined with revisions")
	}

	switch len(revs) {
	case 1:
		rev := revs[0]
		if from, to, ok := strings.Cut(rev, "..."); ok {
			if from == "" || to == "" {
				return differ.Range{}, fmt.Errorf("diff: malformed range %q", rev)
			}
			return differ.Range{Mode: differ.RangeMergeBase, From: from, To: to}, nil
		}
		if from, to, ok := strings.Cut(rev, ".."); ok {
			if from == "" || to == "" {
				return differ.Range{}, fmt.Errorf("diff: malformed range %q", rev)
			}
			return differ.Range{Mode: differ.RangeCommits, From: from, To: to}, nil
		}
		return differ.Range{Mode: differ.RangeWorktree, From: rev}, nil
	case 2:
		return differ.Range{Mode: differ.RangeCommits, From: revs[0], To: revs[1]}, nil
	}
	return differ.Range{}, fmt.Errorf("diff: too many revisions")
}

func parseAddArgs(args *Args, argv []string) error {
	var body []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-f", "--file":
			i++
			if i >= len(argv) {
				return fmt.Errorf("add: %s requires a value", arg)
			}
			args.File = argv[i]
		case "-l", "--line":
			i++
			if i >= len(argv) {
				return fmt.Errorf("add: %s requires a value", arg)
			}
			n, err := strconv.Atoi(argv[i])
			if err != nil || n < 1 {
				return fmt.Errorf("add: invalid line %q", argv[i])
			}
			args.Line = n
		case "--end-line":
			i++
			if i >= len(argv) {
				return fmt.Errorf("add: %s requires a value", arg)
			}
			n, err := strconv.Atoi(argv[i])
			if err != nil || n < 1 {
				return fmt.Errorf("add: invalid end line %q", argv[i])
			}
			args.EndLine = n
		case "-t", "--type":
			i++
			if i >= len(argv) {
				return fmt.Errorf("add: %s requires a value", arg)
			}
			kind, ok := differ.ParseAnnotationKind(argv[i])
			if !ok {
				return fmt.Errorf("add: unknown type %q", argv[i])
			}
			args.Kind = kind
		default:
			body = append(body, arg)
		}
	}
	args.Body = strings.Join(body, " ")
	switch {
	case args.File == "":
		return fmt.Errorf("add: -f FILE is required")
	case args.Line == 0:
		return fmt.Errorf("add: -l LINE is required")
	case args.Body == "":
		return fmt.Errorf("add: annotation text is required")
	case args.EndLine != 0 && args.EndLine < args.Line:
		return fmt.Errorf("add: end line %d precedes line %d", args.EndLine, args.Line)
	}
	return nil
}

func parseListArgs(args *Args, argv []string) error {
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-f", "--file":
			i++
			if i >= len(argv) {
				return fmt.Errorf("list: -f requires a value")
			}
			args.File = argv[i]
		default:
			return fmt.Errorf("list: unexpected argument %q", argv[i])
		}
	}
	return nil
}

func parseExportArgs(args *Args, argv []string) error {
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-f", "--format":
			i++
			if i >= len(argv) {
				return fmt.Errorf("export: -f requires a value")
			}
			args.Format = argv[i]
		case "-o", "--output":
			i++
			if i >= len(argv) {
				return fmt.Errorf("export: -o requires a value")
			}
			args.Output = argv[i]
		default:
			return fmt.Errorf("export: unexpected argument %q", argv[i])
		}
	}
	if _, ok := differ.ParseExportFormat(args.Format); !ok {
		return fmt.Errorf("export: unknown format %q", args.Format)
	}
	return nil
}
