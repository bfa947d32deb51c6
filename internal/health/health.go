// Package health reports reachability of the process, the database and the
// summarizer backend.
package health

import (
	"context"
	"fmt"
	"time"
)

const DefaultPingTimeout = 8 * time.Second

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

type Signal struct {
	OK      bool   `json:"ok"`
	Latency int64  `json:"latency"`
	Message string `json:"message"`
}

type DatabaseSignal struct {
	Signal
	Count int64 `json:"count"`
}

type LLMSignal struct {
	Signal
	Model string `json:"model"`
}

type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Overall   bool           `json:"overall"`
	Backend   Signal         `json:"backend"`
	Database  DatabaseSignal `json:"database"`
	LLM       LLMSignal      `json:"llm"`
}

type Probe struct {
	db          Counter
	llm         Pinger
	pingTimeout time.Duration
}

func NewProbe(db Counter, llm Pinger) *Probe {
	return &Probe{db: db, llm: llm, pingTimeout: DefaultPingTimeout}
}

// Check runs every probe. Overall health requires both the database and the
// summarizer to be reachable.
func (p *Probe) Check(ctx context.Context) Report {
	report := Report{
		Timestamp: time.Now().UTC(),
		Backend:   Signal{OK: true, Message: "API running"},
	}

	start := time.Now()
	count, err := p.db.Count(ctx)
	report.Database.Latency = time.Since(start).Milliseconds()
	if err != nil {
		report.Database.Message = "Connection failed"
	} else {
		report.Database.OK = true
		report.Database.Count = count
		report.Database.Message = "Connected to SQLite"
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()

	start = time.Now()
	model, err := p.llm.Ping(pingCtx)
	report.LLM.Latency = time.Since(start).Milliseconds()
	if err != nil {
		report.LLM.Message = "Connection failed"
	} else {
		report.LLM.OK = true
		report.LLM.Model = model
		report.LLM.Message = fmt.Sprintf("Anthropic API connected (%s)", model)
	}

	report.Overall = report.Database.OK && report.LLM.OK
	return report
}
