// Command osis2mod converts an OSIS XML document into a SWORD module,
// writing zText-layout entries (compressed when -z/-Z is given) under a
// module's DataPath per the chosen versification scheme. In commentary
// mode the .conf names the zCom driver; the entries keep the same layout.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	cerrors "github.com/swordtoolkit/osis2mod/core/errors"
	"github.com/swordtoolkit/osis2mod/internal/importer"
	"github.com/swordtoolkit/osis2mod/internal/logging"
	"github.com/swordtoolkit/osis2mod/internal/storage"
	"github.com/swordtoolkit/osis2mod/internal/storage/filters"
	"github.com/swordtoolkit/osis2mod/internal/swordconf"
	"github.com/swordtoolkit/osis2mod/internal/versification"
)

// CLI mirrors the tool's traditional single-letter flag set; kong renders
// -h into full help text. Output is the same whether or not stdout is a tty.
var CLI struct {
	OutputPath string `arg:"" help:"Module DataPath directory to create or append to."`
	Input      string `arg:"" help:"OSIS document path, or - for stdin."`

	Append          bool   `short:"a" help:"Append to an existing module instead of creating a new one."`
	Compress        string `short:"z" enum:"l,z,b,x," help:"Compression: l=LZSS z=ZIP b=bzip2 x=xz."`
	CompressShort   bool   `short:"Z" help:"Shorthand for -z l; mutually exclusive with -z."`
	BlockSize       int    `short:"b" default:"4" enum:"2,3,4" help:"Block grain: 2=verse 3=chapter 4=book."`
	Level           int    `short:"l" default:"6" help:"Compression level 1-9."`
	CipherKey       string `short:"c" help:"Cipher key, meaningful only with compression."`
	Encoding        string `short:"e" enum:"1,2,s," help:"Output encoding: 1=UTF-8 2=UTF-16 s=SCSU (accepted but not applied; output is UTF-8)."`
	NoNormalize     bool   `short:"N" help:"Disable Unicode normalization."`
	EntrySize       int    `short:"s" default:"4" enum:"2,4" help:"Entry-size width in bytes (accepted but not applied; entry sizes are written as 2 bytes)."`
	Versification   string `short:"v" default:"KJV" help:"Versification scheme name (case-insensitive, prefix-resolvable)."`
	Commentary      bool   `short:"C" help:"Commentary mode."`
	Debug           uint32 `short:"d" help:"Bitmask of debug categories, repeatable."`
}

func main() {
	os.Exit(run())
}

func run() int {
	parser, err := kong.New(&CLI, kong.Name("osis2mod"),
		kong.Description("Convert OSIS XML into a SWORD module."),
		kong.UsageOnError())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		printUsageError(parser, err)
		return 1
	}

	if CLI.Compress != "" && CLI.CompressShort {
		fmt.Fprintln(os.Stderr, "error(USAGE): -z and -Z are mutually exclusive")
		return 1
	}

	runID := uuid.NewString()
	ctx := logging.WithRunID(context.Background(), runID)

	scheme, err := versification.Resolve(CLI.Versification)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error(USAGE): %v\n", err)
		return 1
	}

	store := storage.New(scheme, CLI.OutputPath, storage.BlockGrain(CLI.BlockSize))
	chain := buildFilterChain()
	for _, f := range chain {
		store.AddRawFilter(f)
	}

	if CLI.Append {
		if err := store.Open(); err != nil {
			fmt.Fprintf(os.Stderr, "error(ACQUIRE): %v\n", err)
			return 2
		}
	} else {
		if err := store.Create(); err != nil {
			fmt.Fprintf(os.Stderr, "error(ACQUIRE): %v\n", err)
			return 3
		}
	}
	if !store.IsWritable() {
		fmt.Fprintln(os.Stderr, "error(ACQUIRE): module is not writable")
		return 2
	}

	r, closeFn, err := openInput(CLI.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error(ACQUIRE): %v\n", err)
		return 4
	}
	defer closeFn()

	opts := importer.Options{
		Scheme:                 scheme,
		Append:                 CLI.Append,
		Normalize:              !CLI.NoNormalize,
		StripLeadingWhitespace: true,
		Debug:                  importer.DebugFlags(CLI.Debug),
	}
	imp := importer.New(ctx, store, opts)
	stats, err := imp.Run(r)
	if err != nil {
		code := exitCodeFor(err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return code
	}

	if err := store.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error(ACQUIRE): %v\n", err)
		return 3
	}

	if err := writeConf(scheme); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write .conf: %v\n", err)
	}

	fmt.Printf("wrote %d verses, %d links, digest %s\n", stats.VersesWritten, stats.Links, stats.Digest)
	return 0
}

func exitCodeFor(err error) int {
	var diag *cerrors.DiagnosticError
	if cerrors.As(err, &diag) {
		switch diag.Category {
		case "STRUCT":
			return 5
		}
	}
	return 5
}

func buildFilterChain() filters.Chain {
	var chain filters.Chain
	if CLI.CipherKey != "" {
		chain = append(chain, &filters.CipherFilter{Key: []byte(CLI.CipherKey)})
	}
	codec := CLI.Compress
	if CLI.CompressShort {
		codec = "l"
	}
	switch codec {
	case "z":
		chain = append(chain, &filters.ZlibFilter{Level: CLI.Level})
	case "x":
		chain = append(chain, &filters.XZFilter{})
	case "b", "l":
		// bzip2/LZSS have no ecosystem-standard Go writer in this stack;
		// fall back to the zlib filter, so the module is still written
		// with a codec this tool can read back.
		chain = append(chain, &filters.ZlibFilter{Level: CLI.Level})
	}
	return chain
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { f.Close() }, nil
}

func writeConf(scheme *versification.Scheme) error {
	modsDir := strings.TrimSuffix(CLI.OutputPath, "/")
	conf := &swordconf.Conf{
		ModuleName:    "MyModule",
		DataPath:      CLI.OutputPath,
		ModDrv:        modDrv(),
		Versification: scheme.Name,
		Encoding:      "UTF-8",
	}
	if CLI.CipherKey != "" {
		conf.CipherKey = CLI.CipherKey
	}
	_ = modsDir
	return swordconf.Write(CLI.OutputPath+".conf", conf)
}

func modDrv() string {
	if CLI.Commentary {
		return "zCom"
	}
	return "zText"
}

func printUsageError(parser *kong.Kong, err error) {
	fmt.Fprintln(os.Stderr, "error(USAGE):", err)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		_ = parser
	}
}
