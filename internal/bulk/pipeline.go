// Package bulk dispatches one message per recipient reference and
// aggregates per-recipient outcomes into a single report.
package bulk

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/messaging"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// Sender is the single-message dispatch operation the pipeline drives.
type Sender interface {
	Dispatch(ctx context.Context, req messaging.Request) (messaging.Result, error)
}

// Failure is one recipient that could not be delivered to.
type Failure struct {
	Reference string `json:"user"`
	Detail    string `json:"error"`
}

// Report aggregates a finished run. Failures keep source row order.
//
// When the run is cancelled mid-way, Total still counts every parsed row
// while Succeeded/Failed only count rows that were actually attempted.
type Report struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"success"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"errors"`
}

type Config struct {
	// RatePerSec caps dispatches per second; 0 disables the limiter.
	RatePerSec int
}

// Pipeline runs bulk sends sequentially in source row order. Sequential
// dispatch keeps failure attribution unambiguous and avoids bursting the
// backend with concurrent sends.
type Pipeline struct {
	sender Sender
	log    logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func New(cfg Config, sender Sender, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Pipeline{sender: sender, log: log}
	p.Apply(cfg)
	return p
}

// Apply swaps the rate limit at runtime. Safe to call concurrently with Run.
func (p *Pipeline) Apply(cfg Config) {
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	p.mu.Lock()
	p.limiter = lim
	p.mu.Unlock()
}

func (p *Pipeline) currentLimiter() *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limiter
}

// Run attempts one dispatch per reference, in order, sharing text across all
// of them. A failing row is recorded and the loop moves on; per-row failures
// never abort the run. Run returns only after every row has been attempted
// or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, refs []string, text string) Report {
	start := time.Now()
	rep := Report{Total: len(refs)}

	p.log.Info("bulk run started", logx.Int("total", rep.Total))

	for _, ref := range refs {
		if ctx.Err() != nil {
			p.log.Warn("bulk run cancelled",
				logx.Int("attempted", rep.Succeeded+rep.Failed),
				logx.Int("total", rep.Total))
			break
		}
		if lim := p.currentLimiter(); lim != nil {
			if err := lim.Wait(ctx); err != nil {
				continue // loop re-checks ctx and stops
			}
		}

		req := messaging.Request{Text: text}
		if messaging.Classify(ref) == messaging.RefIdentifier {
			req.UserID = ref
		} else {
			req.DisplayName = ref
		}

		if _, err := p.sender.Dispatch(ctx, req); err != nil {
			rep.Failed++
			rep.Failures = append(rep.Failures, Failure{Reference: ref, Detail: messaging.Detail(err)})
			p.log.Warn("bulk send failed", logx.String("recipient", ref), logx.Err(err))
			continue
		}
		rep.Succeeded++
	}

	fields := []logx.Field{
		logx.Int("total", rep.Total),
		logx.Int("success", rep.Succeeded),
		logx.Int("failed", rep.Failed),
		logx.Duration("took", time.Since(start)),
	}
	if rep.Failed > 0 {
		p.log.Warn("bulk run finished with failures", fields...)
	} else {
		p.log.Info("bulk run finished", fields...)
	}
	return rep
}
