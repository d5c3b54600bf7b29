// presetctl manages named snapshots of a site's configuration settings.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"presetctl/internal/config"
	"presetctl/internal/diff"
	"presetctl/internal/logging"
	"presetctl/internal/preset"
	"presetctl/internal/registry"
	"presetctl/internal/snapshot"
	"presetctl/internal/store"
)

// version is recorded as the source version of exported snapshots.
const version = "1.0.0"

// Exit codes. Callers distinguish failure reasons by code.
const (
	exitOK        = 0
	exitFailure   = 1
	exitNotFound  = 2
	exitMalformed = 3
	exitUsage     = 4
	// exitNothingToDo marks an apply where every entry was skipped.
	exitNothingToDo = 5
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(exitUsage)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "export":
		os.Exit(cmdExport(args))
	case "import":
		os.Exit(cmdImport(args))
	case "download":
		os.Exit(cmdDownload(args))
	case "apply":
		os.Exit(cmdApply(args))
	case "delete":
		os.Exit(cmdDelete(args))
	case "list":
		os.Exit(cmdList(args))
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(exitUsage)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `presetctl - Manage configuration presets

Usage: presetctl [options] <command> [args]

Commands:
  export -name <name> [-comments s] [-author s] [-include-sensitive]
                   Export the live configuration as a new preset
  import <file> [-name <name>]
                   Import a preset document from a file
  download <id> [-o <file>]
                   Write a preset's document to a file or stdout
  apply <id> [-simulate]
                   Apply a preset to the live configuration
  delete <id>      Delete a preset
  list [-id n] [-name s]
                   List stored presets

Options:
  -config <path>  Path to config file (default: ~/.presetctl/config.toml)

Exit codes: 0 ok, 1 failure, 2 not found, 3 malformed document, 4 usage,
            5 nothing to apply`)
}

// env bundles the wired-up collaborators for one command invocation.
type env struct {
	cfg     *config.Config
	store   *store.Store
	service *preset.Service
}

func setup() (*env, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	logging.SetDefault(logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Component: "presetctl",
	}))

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	var reg registry.Registry
	if cfg.Registry.Dir != "" {
		reg = registry.NewDir(cfg.Registry.Dir)
	} else {
		reg = registry.NewStatic(registry.CoreDescriptors())
	}

	svc := preset.NewService(st, reg, &liveStore{st}, version, logging.Default())
	return &env{cfg: cfg, store: st, service: svc}, nil
}

// liveStore adapts the store's settings table to the engine's LiveConfig.
type liveStore struct {
	st *store.Store
}

func (l *liveStore) All() (diff.Values, error) {
	return l.st.AllSettings()
}

func (l *liveStore) Set(plugin, name, value string) error {
	return l.st.SetSetting(plugin, name, value)
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, preset.ErrPresetNotFound), errors.Is(err, store.ErrNotFound):
		return exitNotFound
	case errors.Is(err, snapshot.ErrMalformedDocument):
		return exitMalformed
	default:
		return exitFailure
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid preset id %q", s)
	}
	return id, nil
}

func cmdExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	name := fs.String("name", "", "preset name (required)")
	comments := fs.String("comments", "", "free-form comments")
	author := fs.String("author", "", "author name")
	includeSensitive := fs.Bool("include-sensitive", false, "include sensitive setting values in the document")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Usage: presetctl export -name <name> [-comments s] [-author s] [-include-sensitive]")
		return exitUsage
	}

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	id, err := e.service.Export(*name, *comments, *author, *includeSensitive)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Exported preset %d (%s)\n", id, *name)
	return exitOK
}

func cmdImport(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: presetctl import <file> [-name <name>]")
		return exitUsage
	}
	file := args[0]

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "", "preset name (defaults to the document's name)")
	fs.Parse(args[1:])

	data, err := os.ReadFile(file)
	if err != nil {
		return fail(err)
	}

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	p, err := e.service.Import(data, *name)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Imported preset %d (%s)\n", p.ID, p.Name)
	return exitOK
}

func cmdDownload(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: presetctl download <id> [-o <file>]")
		return exitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("download", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args[1:])

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	document, err := e.service.Download(id)
	if err != nil {
		return fail(err)
	}

	if *output == "" {
		os.Stdout.Write(document)
		return exitOK
	}
	if err := os.WriteFile(*output, document, 0644); err != nil {
		return fail(err)
	}
	fmt.Printf("Wrote preset %d to %s\n", id, *output)
	return exitOK
}

func cmdApply(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: presetctl apply <id> [-simulate]")
		return exitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	simulate := fs.Bool("simulate", false, "classify without writing anything")
	fs.Parse(args[1:])

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	result, err := e.service.Apply(id, *simulate)
	if err != nil {
		return fail(err)
	}

	verb := "Applied"
	if *simulate {
		verb = "Would apply"
	}
	fmt.Printf("%s %d setting(s), skipped %d\n", verb, len(result.Applied), len(result.Skipped))
	for _, entry := range result.Applied {
		fmt.Printf("  %s/%s: %q -> %q\n", entry.Plugin, entry.Name, entry.OldVisibleValue, entry.NewVisibleValue)
	}
	for _, entry := range result.Skipped {
		fmt.Printf("  %s/%s: %s\n", entry.Plugin, entry.Name, entry.Classification)
	}
	if len(result.Applied) == 0 {
		return exitNothingToDo
	}
	return exitOK
}

func cmdDelete(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: presetctl delete <id>")
		return exitUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	if err := e.service.Delete(id); err != nil {
		return fail(err)
	}

	fmt.Printf("Deleted preset %d\n", id)
	return exitOK
}

func cmdList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	idFlag := fs.Int64("id", 0, "filter by preset id")
	name := fs.String("name", "", "filter by preset name")
	fs.Parse(args)

	e, err := setup()
	if err != nil {
		return fail(err)
	}
	defer e.store.Close()

	filter := store.Filter{Name: *name}
	if *idFlag > 0 {
		filter.ID = idFlag
	}

	summaries, err := e.service.List(filter)
	if err != nil {
		return fail(err)
	}

	if len(summaries) == 0 {
		fmt.Println("No presets found")
		return exitOK
	}
	for _, sum := range summaries {
		fmt.Printf("%4d  %-30s  %s\n", sum.ID, sum.Name, sum.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return exitOK
}
