// Command archivum is the CLI front end for the archive engine: it parses
// flags, loads configuration, and dispatches to the library packages that
// do the actual scanning, packing, and restoring.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/archivum/compression"
	"github.com/ankit-chaubey/archivum/config"
	"github.com/ankit-chaubey/archivum/differ"
	"github.com/ankit-chaubey/archivum/digest"
	archivumErrors "github.com/ankit-chaubey/archivum/errors"
	"github.com/ankit-chaubey/archivum/extractor"
	"github.com/ankit-chaubey/archivum/foundry"
	"github.com/ankit-chaubey/archivum/index"
	"github.com/ankit-chaubey/archivum/logging"
	"github.com/ankit-chaubey/archivum/merger"
	"github.com/ankit-chaubey/archivum/packer"
	"github.com/ankit-chaubey/archivum/pruner"
	"github.com/ankit-chaubey/archivum/repairer"
	"github.com/ankit-chaubey/archivum/scanner"
	"github.com/ankit-chaubey/archivum/updater"
	"github.com/ankit-chaubey/archivum/verify"
)

var commands = []string{
	"create", "list", "restore", "verify", "diff", "info", "extract", "cat",
	"search", "stats", "update", "prune", "merge", "repair", "completions",
	"setup", "config",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("archivum", flag.ContinueOnError)
	jsonOut := global.Bool("json", false, "emit machine-readable JSON output")
	quiet := global.Bool("quiet", false, "suppress non-essential output")
	dryRun := global.Bool("dry-run", false, "report actions without performing them")
	logFile := global.String("log-file", "", "path to a rotated log file")

	if err := global.Parse(args); err != nil {
		return foundry.ExitUsage
	}
	if global.NArg() == 0 {
		printUsage()
		return foundry.ExitUsage
	}
	cmd := global.Arg(0)
	rest := global.Args()[1:]

	logCfg := logging.DefaultConfig("archivum")
	logCfg.LogFile = *logFile
	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "archivum: failed to initialize logging:", err)
		return foundry.ExitFailure
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "archivum: failed to load config:", err)
		return foundry.ExitConfigInvalid
	}

	runID := uuid.NewString()
	log.Info("archivum run started", zap.String("command", cmd), zap.String("run_id", runID))
	ctx := &cliContext{json: *jsonOut, quiet: *quiet, dryRun: *dryRun, log: log.WithComponent(cmd), cfg: cfg, runID: runID}

	var cmdErr error
	switch cmd {
	case "create":
		cmdErr = runCreate(ctx, rest)
	case "verify":
		cmdErr = runVerify(ctx, rest)
	case "restore", "extract":
		cmdErr = runRestore(ctx, rest)
	case "diff":
		cmdErr = runDiff(ctx, rest)
	case "info", "list", "stats":
		cmdErr = runInfo(ctx, rest)
	case "update":
		cmdErr = runUpdate(ctx, rest)
	case "merge":
		cmdErr = runMerge(ctx, rest)
	case "repair":
		cmdErr = runRepair(ctx, rest)
	case "prune":
		cmdErr = runPrune(ctx, rest)
	case "cat", "search", "completions", "setup", "config":
		cmdErr = archivumErrors.New(archivumErrors.InputError, cmd, "", "command not implemented in this build", nil)
	default:
		printUsage()
		return foundry.ExitUsage
	}

	if cmdErr != nil {
		printError(ctx, cmdErr)
		if ae, ok := cmdErr.(*archivumErrors.Error); ok {
			return ae.ExitCode()
		}
		return foundry.ExitFailure
	}
	return foundry.ExitSuccess
}

type cliContext struct {
	json   bool
	quiet  bool
	dryRun bool
	log    *logging.Logger
	cfg    *config.Config
	runID  string
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: archivum <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:", commands)
}

func printError(ctx *cliContext, err error) {
	if ctx.json {
		fmt.Fprintf(os.Stderr, `{"status":"FAIL","error":%q}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	if ae, ok := err.(*archivumErrors.Error); ok {
		for _, line := range ae.CausedBy() {
			fmt.Fprintln(os.Stderr, "  caused by:", line)
		}
	}
}

func runCreate(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	output := fs.String("output", "", "archive output directory")
	algName := fs.String("compression", ctx.cfg.Compression, "compression algorithm")
	level := fs.Int("level", ctx.cfg.CompressionLevel, "compression level (zstd only)")
	splitBytes := fs.Int64("split-bytes", ctx.cfg.SplitBytes, "part byte budget")
	splitFiles := fs.Int("split-files", ctx.cfg.SplitFiles, "part file-count budget")
	threads := fs.Int("threads", ctx.cfg.Threads, "digest worker count")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "create", "", "invalid flags", err)
	}
	if fs.NArg() < 1 || *output == "" {
		return archivumErrors.New(archivumErrors.InputError, "create", "", "usage: archivum create --output DIR SOURCE", nil)
	}
	source := fs.Arg(0)

	alg, err := compression.Parse(*algName)
	if err != nil {
		return archivumErrors.New(archivumErrors.InputError, "create", *algName, "invalid compression algorithm", err)
	}

	if ctx.dryRun {
		fmt.Fprintln(os.Stderr, "dry-run: would create archive at", *output, "from", source)
		return nil
	}

	if err := os.MkdirAll(*output, 0o755); err != nil {
		return archivumErrors.New(archivumErrors.IOError, "create", *output, "failed to create output directory", err)
	}

	scanned, err := scanner.Scan(source, scanner.Options{Excludes: ctx.cfg.Excludes})
	if err != nil {
		return err
	}

	idx := &index.ArchivumIndex{Header: index.NewHeader(string(alg), *level)}
	for _, se := range scanned {
		idx.Entries = append(idx.Entries, index.IndexEntry{
			Path: se.Path, Type: se.Type, Size: se.Size,
			ModTimeUnix: se.ModTimeUnix, Mode: se.Mode, SymlinkTarget: se.SymlinkTarget,
		})
	}

	if ctx.cfg.Dedup {
		if err := digest.Run(idx, source, *threads, ctx.log); err != nil {
			return err
		}
	}

	packer.Assign(idx.Entries, packer.Options{Algorithm: alg, Level: *level, SplitBytes: *splitBytes, SplitFiles: *splitFiles})
	if err := packer.Emit(idx.Entries, source, *output, packer.Options{Algorithm: alg, Level: *level, SplitBytes: *splitBytes, SplitFiles: *splitFiles}); err != nil {
		return err
	}
	idx.Recount()
	idx.Header.Notes = "run " + ctx.runID

	if err := index.Write(filepath.Join(*output, "index.arc.json"), idx); err != nil {
		return err
	}

	if !ctx.quiet {
		fmt.Printf("created archive: %d files, %d dirs, %d symlinks, %d part(s)\n",
			idx.Header.TotalFiles, idx.Header.TotalDirs, idx.Header.TotalSymlinks, idx.Header.TotalParts)
	}
	return nil
}

func runVerify(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	algName := fs.String("compression", "", "compression algorithm override")
	continueOnError := fs.Bool("continue-on-error", ctx.cfg.ContinueOnError, "accumulate failures instead of stopping at the first")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "verify", "", "invalid flags", err)
	}
	if fs.NArg() < 1 {
		return archivumErrors.New(archivumErrors.InputError, "verify", "", "usage: archivum verify ARCHIVE_DIR", nil)
	}
	dir := fs.Arg(0)
	idx, err := index.Read(filepath.Join(dir, "index.arc.json"))
	if err != nil {
		return err
	}
	alg, err := resolveAlgorithm(*algName, idx)
	if err != nil {
		return err
	}

	tally, err := verify.Run(idx, verify.Options{ArchiveDir: dir, Algorithm: alg, ContinueOnError: *continueOnError})
	if err != nil {
		return err
	}
	if ctx.json {
		fmt.Printf(`{"status":"%s","ok":%d,"corrupt":%d,"missing":%d}`+"\n",
			statusFor(tally), tally.OK, len(tally.Corrupt), len(tally.Missing))
	} else if !ctx.quiet {
		fmt.Printf("verify: ok=%d corrupt=%d missing=%d\n", tally.OK, len(tally.Corrupt), len(tally.Missing))
	}
	if len(tally.Corrupt) > 0 || len(tally.Missing) > 0 {
		return archivumErrors.New(archivumErrors.IntegrityError, "verify", dir, "archive failed verification", nil)
	}
	return nil
}

func statusFor(t *verify.Tally) string {
	if len(t.Corrupt) > 0 || len(t.Missing) > 0 {
		return "FAIL"
	}
	return "OK"
}

func runRestore(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	dest := fs.String("dest", "", "restore destination directory")
	algName := fs.String("compression", "", "compression algorithm override")
	continueOnError := fs.Bool("continue-on-error", ctx.cfg.ContinueOnError, "continue past non-security failures")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "restore", "", "invalid flags", err)
	}
	if fs.NArg() < 1 || *dest == "" {
		return archivumErrors.New(archivumErrors.InputError, "restore", "", "usage: archivum restore --dest DIR ARCHIVE_DIR", nil)
	}
	dir := fs.Arg(0)
	idx, err := index.Read(filepath.Join(dir, "index.arc.json"))
	if err != nil {
		return err
	}
	alg, err := resolveAlgorithm(*algName, idx)
	if err != nil {
		return err
	}

	if ctx.dryRun {
		fmt.Fprintln(os.Stderr, "dry-run: would restore", len(idx.Entries), "entries to", *dest)
		return nil
	}

	res, err := extractor.Extract(idx, extractor.Options{
		ArchiveDir: dir, DestRoot: *dest, Algorithm: alg,
		RestorePermissions: ctx.cfg.RestorePermissions, ContinueOnError: *continueOnError, Log: ctx.log,
	})
	if err != nil {
		return err
	}
	if !ctx.quiet {
		fmt.Printf("restored: %d dirs, %d symlinks, %d files, %d dedup copies\n",
			res.DirsCreated, res.SymlinksWritten, res.FilesWritten, res.DedupFilesCopied)
		for _, n := range res.Notices {
			fmt.Println("notice:", n)
		}
	}
	return nil
}

func runDiff(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	strict := fs.Bool("strict", false, "re-hash size+mtime matches before calling them unchanged")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "diff", "", "invalid flags", err)
	}
	if fs.NArg() < 2 {
		return archivumErrors.New(archivumErrors.InputError, "diff", "", "usage: archivum diff ARCHIVE_DIR SOURCE_ROOT", nil)
	}
	dir, source := fs.Arg(0), fs.Arg(1)
	idx, err := index.Read(filepath.Join(dir, "index.arc.json"))
	if err != nil {
		return err
	}
	report, err := differ.Run(idx, differ.Options{SourceRoot: source, Strict: *strict})
	if err != nil {
		return err
	}
	if ctx.json {
		fmt.Printf(`{"added":%d,"removed":%d,"modified":%d,"unchanged":%d}`+"\n",
			len(report.Added), len(report.Removed), len(report.Modified), len(report.Unchanged))
	} else if !ctx.quiet {
		fmt.Printf("added=%d removed=%d modified=%d unchanged=%d\n",
			len(report.Added), len(report.Removed), len(report.Modified), len(report.Unchanged))
	}
	return nil
}

func runInfo(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "info", "", "invalid flags", err)
	}
	if fs.NArg() < 1 {
		return archivumErrors.New(archivumErrors.InputError, "info", "", "usage: archivum info ARCHIVE_DIR", nil)
	}
	dir := fs.Arg(0)
	idx, err := index.Read(filepath.Join(dir, "index.arc.json"))
	if err != nil {
		return err
	}
	if ctx.json {
		fmt.Printf(`{"files":%d,"dirs":%d,"symlinks":%d,"bytes":%d,"parts":%d,"compression":%q}`+"\n",
			idx.Header.TotalFiles, idx.Header.TotalDirs, idx.Header.TotalSymlinks,
			idx.Header.TotalBytes, idx.Header.TotalParts, idx.Header.Compression)
		return nil
	}
	printTable(idx)
	return nil
}

func printTable(idx *index.ArchivumIndex) {
	rows := [][2]string{
		{"created", idx.Header.CreatedAtUTC},
		{"files", strconv.FormatInt(idx.Header.TotalFiles, 10)},
		{"dirs", strconv.FormatInt(idx.Header.TotalDirs, 10)},
		{"symlinks", strconv.FormatInt(idx.Header.TotalSymlinks, 10)},
		{"bytes", strconv.FormatInt(idx.Header.TotalBytes, 10)},
		{"parts", strconv.FormatUint(uint64(idx.Header.TotalParts), 10)},
		{"compression", idx.Header.Compression},
	}
	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r[0]); w > width {
			width = w
		}
	}
	for _, r := range rows {
		pad := width - runewidth.StringWidth(r[0])
		fmt.Printf("%s%*s : %s\n", r[0], pad, "", r[1])
	}
}

func runUpdate(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	output := fs.String("output", "", "output directory for the delta archive")
	algName := fs.String("compression", ctx.cfg.Compression, "compression algorithm")
	level := fs.Int("level", ctx.cfg.CompressionLevel, "compression level")
	splitBytes := fs.Int64("split-bytes", ctx.cfg.SplitBytes, "part byte budget")
	splitFiles := fs.Int("split-files", ctx.cfg.SplitFiles, "part file-count budget")
	threads := fs.Int("threads", ctx.cfg.Threads, "digest worker count")
	strict := fs.Bool("strict", false, "re-hash size+mtime matches before calling them unchanged")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "update", "", "invalid flags", err)
	}
	if fs.NArg() < 2 || *output == "" {
		return archivumErrors.New(archivumErrors.InputError, "update", "", "usage: archivum update --output DIR OLD_ARCHIVE_DIR SOURCE_ROOT", nil)
	}
	oldDir, source := fs.Arg(0), fs.Arg(1)
	oldIdx, err := index.Read(filepath.Join(oldDir, "index.arc.json"))
	if err != nil {
		return err
	}
	alg, err := compression.Parse(*algName)
	if err != nil {
		return archivumErrors.New(archivumErrors.InputError, "update", *algName, "invalid compression algorithm", err)
	}
	if err := os.MkdirAll(*output, 0o755); err != nil {
		return archivumErrors.New(archivumErrors.IOError, "update", *output, "failed to create output directory", err)
	}

	newIdx, err := updater.Run(updater.Options{
		OldIndexDir: oldDir, OldIndex: oldIdx, SourceRoot: source, OutputDir: *output,
		Algorithm: alg, Level: *level, SplitBytes: *splitBytes, SplitFiles: *splitFiles,
		Threads: *threads, Excludes: ctx.cfg.Excludes, Strict: *strict,
	})
	if err != nil {
		return err
	}
	newIdx.Header.Notes = "run " + ctx.runID
	if err := index.Write(filepath.Join(*output, "index.arc.json"), newIdx); err != nil {
		return err
	}
	if !ctx.quiet {
		fmt.Printf("updated archive: %d new part(s)\n", newIdx.Header.TotalParts)
	}
	return nil
}

func runMerge(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	output := fs.String("output", "", "output directory for the merged archive")
	algName := fs.String("compression", ctx.cfg.Compression, "compression algorithm")
	level := fs.Int("level", ctx.cfg.CompressionLevel, "compression level")
	splitBytes := fs.Int64("split-bytes", ctx.cfg.SplitBytes, "part byte budget")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "merge", "", "invalid flags", err)
	}
	if fs.NArg() < 2 || *output == "" {
		return archivumErrors.New(archivumErrors.InputError, "merge", "", "usage: archivum merge --output DIR ARCHIVE_DIR...", nil)
	}
	alg, err := compression.Parse(*algName)
	if err != nil {
		return archivumErrors.New(archivumErrors.InputError, "merge", *algName, "invalid compression algorithm", err)
	}
	if err := os.MkdirAll(*output, 0o755); err != nil {
		return archivumErrors.New(archivumErrors.IOError, "merge", *output, "failed to create output directory", err)
	}

	var inputs []merger.Input
	for _, dir := range fs.Args() {
		idx, err := index.Read(filepath.Join(dir, "index.arc.json"))
		if err != nil {
			return err
		}
		inputs = append(inputs, merger.Input{Dir: dir, Index: idx})
	}

	newIdx, err := merger.Run(merger.Options{Inputs: inputs, OutputDir: *output, Algorithm: alg, Level: *level, SplitBytes: *splitBytes})
	if err != nil {
		return err
	}
	newIdx.Header.Notes = newIdx.Header.Notes + "; run " + ctx.runID
	if err := index.Write(filepath.Join(*output, "index.arc.json"), newIdx); err != nil {
		return err
	}
	if !ctx.quiet {
		fmt.Println(newIdx.Header.Notes)
	}
	return nil
}

func runRepair(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("repair", flag.ContinueOnError)
	algName := fs.String("compression", ctx.cfg.Compression, "compression algorithm of the existing parts")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "repair", "", "invalid flags", err)
	}
	if fs.NArg() < 1 {
		return archivumErrors.New(archivumErrors.InputError, "repair", "", "usage: archivum repair ARCHIVE_DIR", nil)
	}
	dir := fs.Arg(0)
	alg, err := compression.Parse(*algName)
	if err != nil {
		return archivumErrors.New(archivumErrors.InputError, "repair", *algName, "invalid compression algorithm", err)
	}
	idx, err := repairer.Run(repairer.Options{ArchiveDir: dir, Algorithm: alg})
	if err != nil {
		return err
	}
	if err := index.Write(filepath.Join(dir, "index.arc.json"), idx); err != nil {
		return err
	}
	if !ctx.quiet {
		fmt.Println(idx.Header.Notes)
	}
	return nil
}

func runPrune(ctx *cliContext, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	keepLast := fs.Int("keep-last", ctx.cfg.PruneKeepLast, "always keep this many of the most recent archives")
	maxAgeDays := fs.Int("max-age-days", ctx.cfg.PruneMaxAgeDays, "delete archives older than this many days (0 deletes all but kept)")
	if err := fs.Parse(args); err != nil {
		return archivumErrors.New(archivumErrors.InputError, "prune", "", "invalid flags", err)
	}
	if fs.NArg() < 1 {
		return archivumErrors.New(archivumErrors.InputError, "prune", "", "usage: archivum prune BACKUP_ROOT", nil)
	}
	res, err := pruner.Run(pruner.Options{Root: fs.Arg(0), KeepLast: *keepLast, MaxAgeDays: *maxAgeDays, DryRun: ctx.dryRun})
	if err != nil {
		return err
	}
	if !ctx.quiet {
		fmt.Printf("kept %d archive(s), deleted %d archive(s)\n", len(res.Kept), len(res.Deleted))
	}
	return nil
}

func resolveAlgorithm(flagValue string, idx *index.ArchivumIndex) (compression.Algorithm, error) {
	if flagValue != "" {
		return compression.Parse(flagValue)
	}
	return compression.Parse(idx.Header.Compression)
}
