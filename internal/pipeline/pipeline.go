// Package pipeline sequences one run: load the container, derive the
// modified message, write both report blocks, or write an error report in
// their place when the input is rejected.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/message"
	"example.com/maskgate/internal/report"
)

// Options configures a Processor. Audit and Metrics are optional.
type Options struct {
	Decode      message.DecodeOptions
	Transform   message.TransformOptions
	Append      bool
	Audit       *common.AuditLog
	Metrics     *common.Metrics
	Logger      logrus.FieldLogger
	Concurrency int
	CacheSize   int
}

// Processor runs the pipeline. A Processor may serve many runs, including
// concurrent ones from Batch; each run owns its messages.
type Processor struct {
	opts Options
	log  logrus.FieldLogger
}

func New(opts Options) *Processor {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	return &Processor{opts: opts, log: log}
}

// Result is the outcome of one run. Kind holds the latest failure; NoError
// means both blocks were written.
type Result struct {
	RunID       string
	Input       string
	Output      string
	InputSha256 string
	Kind        common.Kind
	Err         error
	Original    *message.Message
	Modified    *message.Message
	Pad         int
	Duplicate   bool
	Ts          time.Time
}

func (r *Result) fail(err error) {
	r.Err = err
	r.Kind = common.KindOf(err)
}

// OK reports whether the run wrote both blocks.
func (r Result) OK() bool {
	return r.Kind == common.NoError && r.Err == nil
}

// Run processes the container at in and writes the report to out.
func (p *Processor) Run(ctx context.Context, in, out string) Result {
	res := Result{RunID: uuid.NewString(), Input: in, Output: out, Ts: time.Now().UTC()}
	log := p.log.WithFields(logrus.Fields{"run": res.RunID, "input": in})
	if err := ctx.Err(); err != nil {
		res.fail(err)
		return res
	}
	if sum, size, err := common.Sha256OfFile(in); err == nil {
		res.InputSha256 = sum
		if p.opts.Metrics != nil {
			p.opts.Metrics.AddMessage(size)
		}
	}
	return p.finish(log, res)
}

func (p *Processor) finish(log logrus.FieldLogger, res Result) Result {
	p.process(log, &res)
	if !res.OK() {
		if p.opts.Metrics != nil {
			p.opts.Metrics.IncFailure()
		}
		log.WithField("kind", res.Kind).Warnf("run failed: %v", res.Err)
	} else {
		log.WithField("pad", res.Pad).Info("run completed")
	}
	return res
}

func (p *Processor) process(log logrus.FieldLogger, res *Result) {
	orig, err := message.Load(res.Input, p.opts.Decode)
	if err != nil {
		res.fail(err)
		if werr := p.writeErrorReport(res.Output, res.Kind); werr != nil {
			res.fail(werr)
		}
		return
	}
	res.Original = orig
	log.Debugf("decoded message: %v", dumpClosure(orig))

	mod, err := message.Transform(orig, p.opts.Transform)
	if err != nil {
		// The original block is still written; the modified one is skipped.
		res.fail(err)
	} else {
		res.Modified = mod
		res.Pad = mod.DataLen() - orig.DataLen()
		log.Debugf("derived message: %v", dumpClosure(mod))
	}

	f, err := p.openOutput(res.Output)
	if err != nil {
		res.fail(err)
		return
	}
	defer f.Close()
	if err := message.Encode(f, orig, message.RoleOriginal); err != nil {
		res.fail(err)
		return
	}
	if res.Kind != common.NoError {
		return
	}
	if err := message.Encode(f, mod, message.RoleModified); err != nil {
		res.fail(err)
		return
	}
	if err := f.Close(); err != nil {
		res.fail(fmt.Errorf("%w: %v", common.ErrWriteFailure, err))
		return
	}
	if err := p.audit(res); err != nil {
		log.Warnf("audit log: %v", err)
	}
}

func (p *Processor) openOutput(path string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if p.opts.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFileCreation, err)
	}
	return f, nil
}

// writeErrorReport replaces the output with the single-line sentence for kind.
func (p *Processor) writeErrorReport(path string, kind common.Kind) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrFileCreation, err)
	}
	defer f.Close()
	if err := message.EncodeErrorReport(f, kind); err != nil {
		return err
	}
	return f.Close()
}

func (p *Processor) audit(res *Result) error {
	if p.opts.Audit == nil || res.Original == nil || res.Modified == nil {
		return nil
	}
	return p.opts.Audit.Append(common.AuditEntry{
		RunID:       res.RunID,
		Input:       res.Input,
		InputSha256: res.InputSha256,
		Type:        codec.EncodeHex([]byte{res.Original.Type}),
		Pad:         res.Pad,
		MaskHex:     codec.EncodeHex(res.Original.Mask[:]),
		BeforeHex:   codec.EncodeHex(res.Original.Payload()),
		AfterHex:    codec.EncodeHex(res.Modified.Payload()),
		CRCBefore:   codec.EncodeHex(res.Original.CRC[:]),
		CRCAfter:    codec.EncodeHex(res.Modified.CRC[:]),
		Ts:          res.Ts,
	})
}

// Summary converts the result for the JSON and PDF reports.
func (r Result) Summary(mode message.PadMode) (report.Summary, error) {
	s := report.Summary{
		RunID:       r.RunID,
		Input:       r.Input,
		Output:      r.Output,
		InputSha256: r.InputSha256,
		Pass:        r.OK(),
		Kind:        r.Kind,
		Duplicate:   r.Duplicate,
		Padding:     mode.String(),
		Pad:         r.Pad,
		Ts:          r.Ts,
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	var err error
	if r.Original != nil {
		s.MaskHex = codec.EncodeHex(r.Original.Mask[:])
		if s.Original, err = report.ViewOf(r.Original, message.RoleOriginal); err != nil {
			return s, err
		}
	}
	if r.Modified != nil {
		s.MaskedTetrads = message.MaskedTetrads(r.Modified.DataLen())
		if s.Modified, err = report.ViewOf(r.Modified, message.RoleModified); err != nil {
			return s, err
		}
	}
	return s, nil
}
