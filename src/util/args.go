package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the parsed command line configuration for the softc binary.
type Options struct {
	Load         string // Path to a source file to evaluate, set by --load.
	Repl         bool   // Run the interactive read-eval-print loop, set by --repl.
	Inline       string // Inline source to evaluate, set by -X.
	Threads      int    // Worker goroutines for the LLVM backend's per-function codegen; the reader,
	                    // specializer and interpreter are single-threaded and ignore this.
	Verbose      bool   // Print the compiled terms, and the LLVM IR under the JIT backend, to stdout.
	TokenStream  bool   // Print the raw reader token stream and exit, set by -ts.
	Interp       bool   // Run the tree-walking interpreter instead of the LLVM JIT backend.
	TargetArch   int    // Architecture set by -arch; recorded only, the JIT always targets the host.
	TargetVendor int    // Vendor; no flag sets it and nothing reads it.
	TargetOS     int    // Operating system set by -os; recorded only, the JIT always targets the host.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Maximum worker goroutines allowed executing in parallel.
const appVersion = "softc 1.0"

// Target machine architectures, the values of Options.TargetArch.
const (
	UnknownArch = iota
	X86_64
	Aarch64
	Riscv64
)

// Target operating system, the values of Options.TargetOS.
const (
	UnknownOS = iota
	Linux
	Windows
	MAC
)

// Target vendor, the values of Options.TargetVendor.
const (
	UnknownVendor = iota
	Apple
	PC
	IBM
)

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments into an Options structure.
func ParseArgs() (Options, error) {
	opt := Options{Threads: 1}
	args := os.Args[1:]

	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "--load":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			opt.Load = args[i1+1]
			i1++
		case "--repl":
			opt.Repl = true
		case "-X":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			opt.Inline = args[i1+1]
			i1++
		case "-interp":
			opt.Interp = true
		case "-t":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if t, err := strconv.Atoi(args[i1+1]); err == nil {
				if t > 0 && t <= maxThreads {
					opt.Threads = t
				} else {
					return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
				}
			} else {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			i1++
		case "-arch":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "aarch64":
				opt.TargetArch = Aarch64
			case "riscv64":
				opt.TargetArch = Riscv64
			case "x86_64":
				opt.TargetArch = X86_64
			default:
				return opt, fmt.Errorf("unexpected architecture identifier: %s", args[i1+1])
			}
			i1++
		case "-os":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "linux":
				opt.TargetOS = Linux
			case "windows":
				opt.TargetOS = Windows
			case "mac":
				opt.TargetOS = MAC
			default:
				return opt, fmt.Errorf("unexpected operating system identifier: %s", args[i1+1])
			}
			i1++
		case "-ts":
			opt.TokenStream = true
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			return opt, fmt.Errorf("unexpected positional argument: %s (use --load or -X)", args[i1])
		}
	}

	if opt.Load == "" && !opt.Repl && opt.Inline == "" {
		return opt, fmt.Errorf("one of --load, --repl or -X is required")
	}

	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--load <path>\tReads and evaluates the source file at path.")
	_, _ = fmt.Fprintln(w, "--repl\tStarts an interactive read-eval-print loop on stdin.")
	_, _ = fmt.Fprintln(w, "-X <source>\tEvaluates the given inline source string.")
	_, _ = fmt.Fprintln(w, "-interp\tUse the tree-walking interpreter instead of the LLVM JIT backend.")
	_, _ = fmt.Fprintf(w, "-t\tWorker goroutines for LLVM codegen (not the frontend or interpreter). Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-arch\tTarget architecture: 'aarch64', 'riscv64' or 'x86_64'. Accepted but not applied; the JIT always targets the host.")
	_, _ = fmt.Fprintln(w, "-os\tTarget operating system: 'linux', 'windows' or 'mac'. Accepted but not applied; the JIT always targets the host.")
	_, _ = fmt.Fprintln(w, "-ts\tOutputs the reader token stream and exits.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: dump the compiled terms, and the LLVM IR under the JIT backend, to stdout.")
	_ = w.Flush()
}
