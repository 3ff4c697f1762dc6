package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"envlight/sky"

	"golang.org/x/exp/slices"
)

type impl string

const (
	implGl impl = "opengl"
	implSw impl = "software"
)

func (i *impl) String() string {
	return string(*i)
}

func (i *impl) Set(s string) error {
	switch impl(s) {
	case implGl:
		*i = implGl
	case implSw:
		*i = implSw
	default:
		return fmt.Errorf("%s is not a valid implementation", s)
	}
	return nil
}

type commonArgs struct {
	out     string
	quiet   bool
	supress bool
	verbose bool
	impl    impl
	workers int
	samples int
	shaders string
}

var cargs *commonArgs

type command struct {
	Run   func(self *command)
	Name  string
	Help  string
	Flags *flag.FlagSet
}

var commands = []*command{}

func printGeneralUsage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [arguments]\n\n", exe)
	fmt.Fprintf(os.Stderr, "The commands are:\n\n")
	longest := slices.MaxFunc(commands, func(a, b *command) int {
		return len(a.Name) - len(b.Name)
	})
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "    %*s%s\n", -len(longest.Name)-4, c.Name, c.Help)
	}
	fmt.Fprintln(os.Stderr, "")
	os.Exit(1)
}

func printCommandUsage(cmd *command, suffix string) {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s %s [arguments]%s\n\n", exe, cmd.Name, suffix)
	fmt.Fprintf(os.Stderr, "The arguments are:\n\n")
	cmd.Flags.SetOutput(os.Stderr)
	cmd.Flags.PrintDefaults()
	os.Exit(1)
}

func main() {
	log.SetFlags(0)

	commands = append(commands, createBakeCommand())
	commands = append(commands, createViewCommand())

	slices.SortFunc(commands, func(a, b *command) int {
		return strings.Compare(a.Name, b.Name)
	})

	if len(os.Args) < 2 {
		printGeneralUsage()
	}

	var cmd *command
	for _, c := range commands {
		if strings.EqualFold(c.Name, os.Args[1]) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		printGeneralUsage()
	}

	err := cmd.Flags.Parse(os.Args[2:])
	harderr(err)

	cmd.Run(cmd)
}

func registerCommonFlags(flags *flag.FlagSet, args *commonArgs) {
	flags.StringVar(&args.out, "out", args.out, "the output directory")
	flags.StringVar(&args.out, "o", args.out, "shorthand for out")
	flags.BoolVar(&args.quiet, "quiet", args.quiet, "disables informational logging")
	flags.BoolVar(&args.quiet, "q", args.quiet, "shorthand for quiet")
	flags.BoolVar(&args.supress, "supress", args.supress, "disables soft error logging")
	flags.BoolVar(&args.verbose, "v", args.verbose, "enables debug logging of the environment pipeline")
	flags.Var(&args.impl, "impl", "the implementation; opengl or software")
	flags.IntVar(&args.workers, "workers", args.workers, "number of workers of the software implementation")
	flags.IntVar(&args.samples, "samples", args.samples, "GGX samples per texel")
	flags.StringVar(&args.shaders, "shaders", args.shaders, "directory with replacement shader sources named <stage id>.glsl (opengl only)")
}

func setCommonArgs(args *commonArgs) {
	cargs = args
	if args.out == "" {
		var err error
		args.out, err = os.Getwd()
		harderr(err)
	}

	_, err := os.Stat(args.out)
	if err != nil {
		harderr(fmt.Errorf("cannot stat output directory: %w", err))
	}

	if args.verbose {
		sky.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

func gatherInputFiles(globs []string) []string {
	matched := []string{}

	for _, g := range globs {
		m, err := filepath.Glob(g)
		softerr(err)
		matched = append(matched, m...)
	}

	return matched
}

func info(format string, v ...any) {
	if !cargs.quiet {
		log.Printf(format, v...)
	}
}

func close(closer io.Closer) {
	closer.Close()
}

func softerr(err error) bool {
	if err != nil && !cargs.supress {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return true
	}
	return false
}

func harderr(err error) {
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
