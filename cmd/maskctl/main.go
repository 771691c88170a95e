package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/config"
	"example.com/maskgate/internal/crypto"
	"example.com/maskgate/internal/manifest"
	"example.com/maskgate/internal/message"
	"example.com/maskgate/internal/pipeline"
	"example.com/maskgate/internal/report"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		runCmd(nil)
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "run":
		runCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "inspect":
		inspectCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "verify-signature":
		verifySignatureCmd(os.Args[2:])
	case "pack":
		packCmd(os.Args[2:])
	case "version":
		fmt.Printf("maskctl %s (built %s)\n", version, buildDate)
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`maskctl %s (built %s) <command> [options]

Without a command maskctl runs the pipeline on data_in.txt and writes data_out.txt.

Commands:
  run       [--config <maskctl.yaml>] [--in <file>] [--out <file>] [--summary <summary.json>] [--audit <audit.jsonl>] [--append] [--padding remainder|boundary] [--lenient-hex]
  validate  --in <file> [--lenient-hex]
  inspect   --in <file> [--padding remainder|boundary] [--lenient-hex]
  batch     --in <dir> --out-dir <dir> [--config <maskctl.yaml>] [--concurrency <n>] [--cache-size <n>] [--metrics] [--progress] [--pdf <batch.pdf>] [--lang en|tr]
  report    --summary <summary.json> --pdf <report.pdf> [--lang en|tr]
  manifest  --inputs <comma-separated> --out <manifest.json> [--sign --key <key.pem> --cert <cert.pem> --jws-out <file>] | --verify <manifest.json>
  verify-signature --manifest <manifest.json> --jws <signature.jws> --cert <cert.pem>
  pack      --type <hex byte> --data <hex> --mask <hex 4 bytes> [--out <file>]
  version
`, version, buildDate)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}

func loadConfig(path string) config.Config {
	if strings.TrimSpace(path) == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fail("config", err)
	}
	return cfg
}

func setupLogging(cfg config.Config) io.Closer {
	closer, err := common.SetupLogging(cfg.LogOptions())
	if err != nil {
		fail("logging", err)
	}
	return closer
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// applyOverrides copies flags the user actually set over the config values.
func applyOverrides(fs *flag.FlagSet, cfg *config.Config, in, out, summary, audit, padding *string, appendOut, lenient *bool) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input = *in
		case "out":
			cfg.Output = *out
		case "summary":
			cfg.Summary = *summary
		case "audit":
			cfg.Audit = *audit
		case "padding":
			cfg.Transform.Padding = *padding
		case "append":
			cfg.OutputMode.Append = *appendOut
		case "lenient-hex":
			cfg.Decode.LenientHex = *lenient
		}
	})
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	in := fs.String("in", config.DefaultInput, "input container")
	out := fs.String("out", config.DefaultOutput, "output report")
	summary := fs.String("summary", "", "write a JSON run summary")
	audit := fs.String("audit", "", "append transform records to this JSONL log")
	padding := fs.String("padding", "remainder", "padding mode: remainder or boundary")
	appendOut := fs.Bool("append", false, "append to the output instead of truncating it")
	lenient := fs.Bool("lenient-hex", false, "accept malformed hex digits")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyOverrides(fs, &cfg, in, out, summary, audit, padding, appendOut, lenient)
	if err := cfg.Validate(); err != nil {
		fail("config", err)
	}
	defer closeQuietly(setupLogging(cfg))

	opts := pipeline.Options{
		Decode:    cfg.DecodeOptions(),
		Transform: cfg.TransformOptions(),
		Append:    cfg.OutputMode.Append,
		Logger:    common.Logger(),
	}
	if cfg.Audit != "" {
		opts.Audit = common.NewAuditLog(cfg.Audit)
	}
	ctx, cancel := signalContext()
	defer cancel()
	res := pipeline.New(opts).Run(ctx, cfg.Input, cfg.Output)

	if cfg.Summary != "" {
		s, err := res.Summary(opts.Transform.Padding)
		if err == nil {
			err = report.SaveSummaryJSON(s, cfg.Summary)
		}
		if err != nil {
			fail("write summary", err)
		}
	}
	if !res.OK() {
		fmt.Fprintln(os.Stderr, res.Kind.Sentence())
		fail("run", res.Err)
	}
	fmt.Printf("PASS run=%s pad=%d out=%s\n", res.RunID, res.Pad, cfg.Output)
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	in := fs.String("in", config.DefaultInput, "input container")
	lenient := fs.Bool("lenient-hex", false, "accept malformed hex digits")
	fs.Parse(args)

	m, err := message.Load(*in, message.DecodeOptions{LenientHex: *lenient})
	if err != nil {
		fmt.Println(common.KindOf(err).Sentence())
		fail("validate", err)
	}
	fmt.Printf("OK type=0x%02x length=%d data=0x%s crc=0x%08x mask=0x%08x\n",
		m.Type, m.Length, codec.EncodeHex(m.Payload()), m.CRCValue(), m.MaskValue())
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", config.DefaultInput, "input container")
	padding := fs.String("padding", "remainder", "padding mode: remainder or boundary")
	lenient := fs.Bool("lenient-hex", false, "accept malformed hex digits")
	fs.Parse(args)

	mode, err := message.ParsePadMode(*padding)
	if err != nil {
		fail("padding", err)
	}
	m, err := message.Load(*in, message.DecodeOptions{LenientHex: *lenient})
	if err != nil {
		fail("decode", err)
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true}
	fmt.Println("original:")
	cfg.Dump(m)
	mod, err := message.Transform(m, message.TransformOptions{Padding: mode})
	if err != nil {
		fail("transform", err)
	}
	fmt.Println("modified:")
	cfg.Dump(mod)
	fmt.Printf("masked tetrads: %v\n", message.MaskedTetrads(mod.DataLen()))
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	inDir := fs.String("in", ".", "input directory")
	outDir := fs.String("out-dir", "out", "results directory")
	concurrency := fs.Int("concurrency", 0, "worker count (default from config)")
	cacheSize := fs.Int("cache-size", 0, "duplicate set size (default from config)")
	metricsFlag := fs.Bool("metrics", false, "print batch throughput metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	pdfPath := fs.String("pdf", "", "render the batch summary as PDF")
	lang := fs.String("lang", "", "report language (en, tr)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *concurrency > 0 {
		cfg.Batch.Concurrency = *concurrency
	}
	if *cacheSize > 0 {
		cfg.Batch.CacheSize = *cacheSize
	}
	if *lang != "" {
		cfg.Report.Lang = *lang
	}
	defer closeQuietly(setupLogging(cfg))

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
	}
	opts := pipeline.Options{
		Decode:      cfg.DecodeOptions(),
		Transform:   cfg.TransformOptions(),
		Metrics:     metrics,
		Logger:      common.Logger(),
		Concurrency: cfg.Batch.Concurrency,
		CacheSize:   cfg.Batch.CacheSize,
	}
	if cfg.Audit != "" {
		opts.Audit = common.NewAuditLog(cfg.Audit)
	}
	p := pipeline.New(opts)

	ctx, cancel := signalContext()
	defer cancel()
	if metrics != nil {
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	results, err := p.Batch(ctx, *inDir, *outDir)
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		fail("batch", err)
	}

	summaries, err := p.Summaries(results)
	if err != nil {
		fail("summaries", err)
	}
	b := report.NewBatchSummary(summaries)
	batchJSON := filepath.Join(*outDir, "batch.json")
	if err := report.SaveBatchJSON(b, batchJSON); err != nil {
		fail("write batch summary", err)
	}
	if *pdfPath != "" {
		l, err := report.ParseLanguage(cfg.Report.Lang)
		if err != nil {
			fail("lang", err)
		}
		if err := report.SaveBatchPDF(b, l, *pdfPath); err != nil {
			fail("write pdf", err)
		}
		fmt.Println("Wrote PDF:", *pdfPath)
	}
	fmt.Printf("total=%d passed=%d failed=%d duplicates=%d summary=%s\n", b.Total, b.Passed, b.Failed, b.Duplicates, batchJSON)
	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Printf("Metrics: duration=%s messages=%d failures=%d duplicates=%d processed=%s rate=%.1f msg/s\n",
			snap.Duration.Round(time.Millisecond),
			snap.Messages,
			snap.Failures,
			snap.Duplicates,
			common.FormatBytes(snap.Bytes),
			snap.MessagesPerSecond(),
		)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	summaryPath := fs.String("summary", "", "run summary JSON")
	pdfPath := fs.String("pdf", "", "output PDF")
	lang := fs.String("lang", "en", "report language (en, tr)")
	fs.Parse(args)

	if *summaryPath == "" || *pdfPath == "" {
		fmt.Println("required: --summary, --pdf")
		os.Exit(1)
	}
	l, err := report.ParseLanguage(*lang)
	if err != nil {
		fail("lang", err)
	}
	s, err := report.LoadSummaryJSON(*summaryPath)
	if err != nil {
		fail("load summary", err)
	}
	if err := report.SaveSummaryPDF(s, l, *pdfPath); err != nil {
		fail("write pdf", err)
	}
	fmt.Println("Wrote PDF:", *pdfPath)
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated paths")
	out := fs.String("out", "manifest.json", "output json")
	verify := fs.String("verify", "", "check files against an existing manifest")
	sign := fs.Bool("sign", false, "sign manifest (detached JWS over JSON)")
	keyPath := fs.String("key", "", "PEM private key for signing (requires --sign)")
	certPath := fs.String("cert", "", "PEM certificate describing signer (requires --sign)")
	jwsOut := fs.String("jws-out", "", "output JWS file (defaults to manifest path with .jws)")
	fs.Parse(args)

	if *verify != "" {
		m, err := manifest.Load(*verify)
		if err != nil {
			fail("manifest load", err)
		}
		bad := manifest.Verify(m)
		for _, mm := range bad {
			fmt.Printf("MISMATCH %s: %s\n", mm.Path, mm.Reason)
		}
		if len(bad) > 0 {
			os.Exit(1)
		}
		fmt.Printf("Manifest OK (%d items)\n", len(m.Items))
		return
	}

	if *inputs == "" {
		fmt.Println("required: --inputs")
		os.Exit(1)
	}
	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		fmt.Println("no input paths specified")
		os.Exit(1)
	}
	m, err := manifest.Build(paths)
	if err != nil {
		fail("manifest build", err)
	}
	if !*sign {
		if err := manifest.Save(m, *out); err != nil {
			fail("manifest save", err)
		}
		fmt.Println("Wrote", *out)
		return
	}

	if *keyPath == "" || *certPath == "" {
		fmt.Println("--sign requires --key and --cert")
		os.Exit(1)
	}
	keyBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		fail("read key", err)
	}
	certBytes, err := os.ReadFile(*certPath)
	if err != nil {
		fail("read cert", err)
	}
	sigPath := *jwsOut
	if sigPath == "" {
		sigPath = manifest.SignaturePath(*out)
	}
	payload, jws, err := manifest.Sign(m, keyBytes, certBytes, sigPath)
	if err != nil {
		fail("manifest sign", err)
	}
	jwsBytes, err := json.MarshalIndent(jws, "", "  ")
	if err != nil {
		fail("jws marshal", err)
	}
	if err := os.WriteFile(sigPath, jwsBytes, 0o644); err != nil {
		fail("write jws", err)
	}
	if err := os.WriteFile(*out, payload, 0o644); err != nil {
		fail("write manifest", err)
	}
	fmt.Println("Wrote", *out)
	fmt.Println("Wrote signature", sigPath)
}

func verifySignatureCmd(args []string) {
	fs := flag.NewFlagSet("verify-signature", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "manifest JSON file")
	jwsPath := fs.String("jws", "", "manifest JWS signature file")
	certPath := fs.String("cert", "", "signer certificate (PEM)")
	fs.Parse(args)

	if *manifestPath == "" || *jwsPath == "" || *certPath == "" {
		fmt.Println("required: --manifest, --jws, --cert")
		os.Exit(1)
	}
	manifestBytes, err := os.ReadFile(*manifestPath)
	if err != nil {
		fail("read manifest", err)
	}
	jwsBytes, err := os.ReadFile(*jwsPath)
	if err != nil {
		fail("read jws", err)
	}
	certBytes, err := os.ReadFile(*certPath)
	if err != nil {
		fail("read cert", err)
	}
	var jwsObj crypto.JWS
	if err := json.Unmarshal(jwsBytes, &jwsObj); err != nil {
		fail("parse jws", err)
	}
	if err := crypto.VerifyDetached(manifestBytes, jwsObj, certBytes); err != nil {
		fail("verify signature", err)
	}
	fmt.Println("Signature OK")
}

func packCmd(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	typ := fs.String("type", "01", "message type (one hex byte)")
	data := fs.String("data", "", "data region (hex)")
	mask := fs.String("mask", "00000000", "mask (four hex bytes)")
	out := fs.String("out", "", "output container (stdout when empty)")
	fs.Parse(args)

	m, err := buildMessage(*typ, *data, *mask)
	if err != nil {
		fail("pack", err)
	}
	if *out == "" {
		if err := message.WriteContainer(os.Stdout, m); err != nil {
			fail("pack", err)
		}
		return
	}
	if err := os.WriteFile(*out, message.MarshalContainer(m), 0o644); err != nil {
		fail("pack", err)
	}
	fmt.Println("Wrote", *out)
}

func buildMessage(typHex, dataHex, maskHex string) (*message.Message, error) {
	typ, err := codec.DecodeHex(strings.TrimSpace(typHex), false)
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	if len(typ) != 1 {
		return nil, fmt.Errorf("type: %w: want one byte", common.ErrLengthMismatch)
	}
	data, err := codec.DecodeHex(strings.TrimSpace(dataHex), false)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	raw, err := codec.DecodeHex(strings.TrimSpace(maskHex), false)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if len(raw) != message.MaskSize {
		return nil, fmt.Errorf("mask: %w: want %d bytes", common.ErrLengthMismatch, message.MaskSize)
	}
	var m [message.MaskSize]byte
	copy(m[:], raw)
	return message.New(typ[0], data, m)
}
