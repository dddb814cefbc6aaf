package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/checkpoint"
	"cairn.systems/objectstate/claims"
	"cairn.systems/objectstate/keys"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/bundle"
	"cairn.systems/objectstate/storage/kvregistry"
	"cairn.systems/objectstate/stream"

	_ "cairn.systems/objectstate/storage/fskv"
	_ "cairn.systems/objectstate/storage/grpckv"
	_ "cairn.systems/objectstate/storage/sqlitekv"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "derive":
		return cmdDerive(args[1:], out, errOut)
	case "claim":
		return cmdClaim(args[1:], out, errOut)
	case "exists":
		return cmdExists(args[1:], out, errOut)
	case "release":
		return cmdRelease(args[1:], out, errOut)
	case "head":
		return cmdHead(args[1:], out, errOut)
	case "fold":
		return cmdFold(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "backends":
		return cmdBackends(args[1:], out, errOut)
	case "version":
		_, _ = fmt.Fprintln(out, "cairn-state "+version)
		return 0
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cairn-state: derived addresses, claims and event stream heads")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cairn-state derive -parent <0xhex> <key flag> [-marker]")
	fmt.Fprintln(w, "  cairn-state claim -parent <0xhex> <key flag> [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state exists (-address <0xhex> | -parent <0xhex> <key flag>) [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state release (-address <0xhex> | -parent <0xhex> <key flag>) [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state head -stream <0xhex> [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state fold -stream <0xhex> -payload <text> [-payload ...] -seq <n> [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state export -address <0xhex> [-address ...] [-out <file>] [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state import [-in <file>] [-ignore-unknown] [-backend <name>] [backend flags]")
	fmt.Fprintln(w, "  cairn-state key init -name <name> [-seed-hex <64hex>] [-force] [-dir <path>]")
	fmt.Fprintln(w, "  cairn-state key addr -name <name> [-dir <path>]")
	fmt.Fprintln(w, "  cairn-state key list [-dir <path>]")
	fmt.Fprintln(w, "  cairn-state backends")
	fmt.Fprintln(w, "  cairn-state version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Key flags (exactly one per command):")
	fmt.Fprintln(w, "  -string <text>     UTF-8 string key")
	fmt.Fprintln(w, "  -ascii <text>      ASCII string key")
	fmt.Fprintln(w, "  -bytes-hex <hex>   byte-string key")
	fmt.Fprintln(w, "  -u64 <n>           unsigned 64-bit integer key")
	fmt.Fprintln(w, "  -bool <true|false> boolean key")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - derive is pure and needs no backend")
	fmt.Fprintln(w, "  - fold seals the payloads as one checkpoint batch on the stream's head")
	fmt.Fprintln(w, "  - exists exits 0 when claimed, 1 when not")
	fmt.Fprintln(w, "  - export/import move record snapshots between backends as TAR bundles")
	fmt.Fprintln(w, "  - run 'cairn-state backends' for the available -backend values and their flags")
}

// keyFlags collects the typed key value for derive-style commands.
// Flags carry the value as text; exactly one must be set.
type keyFlags struct {
	str      string
	ascii    string
	bytesHex string
	u64      string
	boolean  string
}

func registerKeyFlags(fs *flag.FlagSet) *keyFlags {
	kf := &keyFlags{}
	fs.StringVar(&kf.str, "string", "", "Key as UTF-8 text")
	fs.StringVar(&kf.ascii, "ascii", "", "Key as ASCII text")
	fs.StringVar(&kf.bytesHex, "bytes-hex", "", "Key as hex-encoded bytes")
	fs.StringVar(&kf.u64, "u64", "", "Key as an unsigned 64-bit integer")
	fs.StringVar(&kf.boolean, "bool", "", "Key as a boolean (true or false)")
	return kf
}

func (kf *keyFlags) value() (canon.Value, error) {
	set := 0
	for _, v := range []string{kf.str, kf.ascii, kf.bytesHex, kf.u64, kf.boolean} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return nil, errors.New("missing key: use -string, -ascii, -bytes-hex, -u64, or -bool")
	}
	if set > 1 {
		return nil, errors.New("conflicting key flags: provide exactly one")
	}
	switch {
	case kf.str != "":
		return canon.String(kf.str)
	case kf.ascii != "":
		return canon.Ascii(kf.ascii)
	case kf.bytesHex != "":
		b, err := hex.DecodeString(strings.TrimPrefix(kf.bytesHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid -bytes-hex: %v", err)
		}
		return canon.Bytes(b), nil
	case kf.u64 != "":
		n, err := strconv.ParseUint(kf.u64, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -u64: %v", err)
		}
		return canon.U64(n), nil
	default:
		b, err := strconv.ParseBool(kf.boolean)
		if err != nil {
			return nil, fmt.Errorf("invalid -bool: %v", err)
		}
		return canon.Bool(b), nil
	}
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseAddress(s, flagName string, errOut io.Writer) (object.Address, bool) {
	if s == "" {
		fmt.Fprintf(errOut, "missing %s\n", flagName)
		return object.Zero, false
	}
	addr, err := object.Parse(s)
	if err != nil {
		fmt.Fprintf(errOut, "invalid %s: %v\n", flagName, err)
		return object.Zero, false
	}
	return addr, true
}

func openKV(name string, errOut io.Writer) (storage.KV, func(), bool) {
	kv, closeFn, err := kvregistry.Open(name, kvregistry.UsageCLI)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, nil, false
	}
	cleanup := func() {}
	if closeFn != nil {
		cleanup = func() { _ = closeFn() }
	}
	return kv, cleanup, true
}

func cmdDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var parentHex string
	var marker bool
	fs.StringVar(&parentHex, "parent", "", "Parent address (0x-prefixed hex)")
	fs.BoolVar(&marker, "marker", false, "Print the claim-marker address instead of the child address")
	kf := registerKeyFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	parent, ok := parseAddress(parentHex, "-parent", errOut)
	if !ok {
		return 2
	}
	key, err := kf.value()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	child := object.Derive(parent, key)
	if marker {
		_, _ = fmt.Fprintln(out, object.ClaimMarker(child))
		return 0
	}
	_, _ = fmt.Fprintln(out, child)
	return 0
}

func cmdClaim(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var parentHex string
	backend := fs.String("backend", "fs", "KV backend name")
	kf := registerKeyFlags(fs)
	fs.StringVar(&parentHex, "parent", "", "Parent address (0x-prefixed hex)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	parent, ok := parseAddress(parentHex, "-parent", errOut)
	if !ok {
		return 2
	}
	key, err := kf.value()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	child, err := claims.NewRegistry(kv).Claim(parent, key)
	if err != nil {
		fmt.Fprintf(errOut, "claim: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, child)
	return 0
}

// childAddress resolves the target of exists/release: either a direct
// -address, or -parent plus a key flag.
func childAddress(addrHex, parentHex string, kf *keyFlags, errOut io.Writer) (object.Address, bool) {
	if addrHex != "" {
		if parentHex != "" {
			fmt.Fprintln(errOut, "conflicting flags: -address cannot be combined with -parent")
			return object.Zero, false
		}
		return parseAddress(addrHex, "-address", errOut)
	}
	parent, ok := parseAddress(parentHex, "-parent", errOut)
	if !ok {
		return object.Zero, false
	}
	key, err := kf.value()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return object.Zero, false
	}
	return object.Derive(parent, key), true
}

func cmdExists(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("exists", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var addrHex string
	var parentHex string
	backend := fs.String("backend", "fs", "KV backend name")
	kf := registerKeyFlags(fs)
	fs.StringVar(&addrHex, "address", "", "Child address (0x-prefixed hex)")
	fs.StringVar(&parentHex, "parent", "", "Parent address (0x-prefixed hex)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	child, ok := childAddress(addrHex, parentHex, kf, errOut)
	if !ok {
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	if claims.NewRegistry(kv).Claimed(child) {
		_, _ = fmt.Fprintln(out, "claimed")
		return 0
	}
	_, _ = fmt.Fprintln(out, "not claimed")
	return 1
}

func cmdRelease(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var addrHex string
	var parentHex string
	backend := fs.String("backend", "fs", "KV backend name")
	kf := registerKeyFlags(fs)
	fs.StringVar(&addrHex, "address", "", "Child address (0x-prefixed hex)")
	fs.StringVar(&parentHex, "parent", "", "Parent address (0x-prefixed hex)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	child, ok := childAddress(addrHex, parentHex, kf, errOut)
	if !ok {
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	if err := claims.NewRegistry(kv).Release(child); err != nil {
		fmt.Fprintf(errOut, "release: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "released")
	return 0
}

func cmdHead(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("head", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var streamHex string
	backend := fs.String("backend", "fs", "KV backend name")
	fs.StringVar(&streamHex, "stream", "", "Stream address (0x-prefixed hex)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	target, ok := parseAddress(streamHex, "-stream", errOut)
	if !ok {
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	head, err := stream.NewHeadStore(kv, stream.Options{}).Head(target)
	if storage.IsNotFound(err) {
		fmt.Fprintf(errOut, "no head for stream %s\n", target)
		return 1
	}
	if err != nil {
		fmt.Fprintf(errOut, "head: %v\n", err)
		return 1
	}
	printHead(out, target, head)
	return 0
}

func printHead(out io.Writer, target object.Address, head *stream.Head) {
	fmt.Fprintf(out, "Stream: %s\n", target)
	fmt.Fprintf(out, "Root: %s\n", head.Root())
	fmt.Fprintf(out, "Leaves: %d\n", head.Acc.Size())
	fmt.Fprintf(out, "Events: %d\n", head.NumEvents)
	fmt.Fprintf(out, "Checkpoint-Seq: %d\n", head.CheckpointSeq)
}

func cmdFold(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("fold", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var streamHex string
	var payloads stringList
	backend := fs.String("backend", "fs", "KV backend name")
	seq := fs.Uint64("seq", 0, "Checkpoint sequence for the sealed batch")
	fs.StringVar(&streamHex, "stream", "", "Stream address (0x-prefixed hex)")
	fs.Var(&payloads, "payload", "Event payload as text (repeatable)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	target, ok := parseAddress(streamHex, "-stream", errOut)
	if !ok {
		return 2
	}
	if len(payloads) == 0 {
		fmt.Fprintln(errOut, "missing -payload")
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	heads := stream.NewHeadStore(kv, stream.Options{})
	agg := checkpoint.New(heads, heads.Aggregator())

	cap, err := stream.NewCapability(target)
	if err != nil {
		fmt.Fprintf(errOut, "fold: %v\n", err)
		return 2
	}
	for _, p := range payloads {
		ev, err := cap.Emit([]byte(p))
		if err != nil {
			fmt.Fprintf(errOut, "emit: %v\n", err)
			return 1
		}
		if err := agg.Ingest(ev); err != nil {
			fmt.Fprintf(errOut, "ingest: %v\n", err)
			return 1
		}
	}
	if _, err := agg.Seal(*seq); err != nil {
		fmt.Fprintf(errOut, "seal: %v\n", err)
		return 1
	}

	head, err := heads.Head(target)
	if err != nil {
		fmt.Fprintf(errOut, "head: %v\n", err)
		return 1
	}
	printHead(out, target, head)
	return 0
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var addrsHex stringList
	var outPath string
	backend := fs.String("backend", "fs", "KV backend name")
	index := fs.Bool("index", true, "Include index.json in the bundle")
	fs.Var(&addrsHex, "address", "Record address to export (repeatable)")
	fs.StringVar(&outPath, "out", "", "Output file (default stdout)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(addrsHex) == 0 {
		fmt.Fprintln(errOut, "missing -address")
		return 2
	}
	addrs := make([]object.Address, 0, len(addrsHex))
	for _, s := range addrsHex {
		addr, ok := parseAddress(s, "-address", errOut)
		if !ok {
			return 2
		}
		addrs = append(addrs, addr)
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	dst := out
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
			return 1
		}
		defer f.Close()
		dst = f
	}
	if err := bundle.Export(dst, kv, addrs, bundle.ExportOptions{IncludeIndex: *index}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var inPath string
	backend := fs.String("backend", "fs", "KV backend name")
	ignoreUnknown := fs.Bool("ignore-unknown", false, "Skip unknown bundle entries instead of failing")
	fs.StringVar(&inPath, "in", "", "Input file (default stdin)")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	kv, cleanup, ok := openKV(*backend, errOut)
	if !ok {
		return 2
	}
	defer cleanup()

	var src io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			fmt.Fprintf(errOut, "open %s: %v\n", inPath, err)
			return 1
		}
		defer f.Close()
		src = f
	}
	if err := bundle.ImportWithOptions(src, kv, bundle.ImportOptions{IgnoreUnknown: *ignoreUnknown}); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "imported")
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "addr":
		return cmdKeyAddr(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "cairn-state key: local identity management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cairn-state key init -name <name> [-seed-hex <64hex>] [-force] [-dir <path>]")
	fmt.Fprintln(w, "  cairn-state key addr -name <name> [-dir <path>]")
	fmt.Fprintln(w, "  cairn-state key list [-dir <path>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var dir string
	var force bool
	fs.StringVar(&name, "name", "", "Identity name")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible setups)")
	fs.StringVar(&dir, "dir", "", "Key directory (default ~/.cairn/keys)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing identity")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing -name")
		return 2
	}
	ks, err := keys.Open(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var addr object.Address
	if seedHex != "" {
		seed, derr := keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid -seed-hex: %v\n", derr)
			return 2
		}
		addr, err = ks.ImportIdentity(name, seed, force)
	} else {
		addr, err = ks.InitializeIdentity(name, force)
	}
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created identity: %s\n", addr)
	return 0
}

func cmdKeyAddr(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key addr", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var dir string
	fs.StringVar(&name, "name", "", "Identity name")
	fs.StringVar(&dir, "dir", "", "Key directory (default ~/.cairn/keys)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing -name")
		return 2
	}
	ks, err := keys.Open(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	addr, err := ks.Address(name)
	if err != nil {
		fmt.Fprintf(errOut, "key addr: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, addr)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dir string
	fs.StringVar(&dir, "dir", "", "Key directory (default ~/.cairn/keys)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.Open(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\n", e.Name, e.Address)
	}
	return 0
}

func cmdBackends(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, b := range kvregistry.List(kvregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(out, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}
