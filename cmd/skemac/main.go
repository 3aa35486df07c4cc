// Command skemac compiles schema documents into JSON Schema or OpenAPI
// documents and Go validator packages.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var version = "dev"

// errUsage marks command-line misuse; main exits with status 2.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "skemac: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errUsage
	}
	switch args[0] {
	case "compile":
		return compileCmd(args[1:], stdout, stderr)
	case "check":
		return checkCmd(args[1:], stdout, stderr)
	case "sample":
		return sampleCmd(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "skemac %s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return errUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `skemac

Usage:
  skemac compile [-config path] [-out dir] [-dialect jsonschema|openapi] [-validators none|source] [-v] [inputs...]
  skemac check -schema file [-export name] [-dialect d] data.json...
  skemac sample [-export name] [-depth n] file
  skemac version

Without inputs, compile selects files with the include/exclude patterns of skemac.yaml.
`)
}

// newFlags returns a flag set reporting to stderr and a -v flag.
func newFlags(name string, stderr io.Writer) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "enable debug logs")
	return fs, verbose
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	return nil
}

func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}
