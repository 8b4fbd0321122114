// Package usage is the append-only usage/cost ledger. Every pipeline
// completion becomes one immutable entry, written to the all-time log and
// to the matching daily and monthly logs. Aggregates are recomputed from
// the entry set on every save, never updated incrementally.
package usage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/tokens"
)

// Entry status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Entry is one immutable usage record.
type Entry struct {
	ID               string           `json:"id"`
	Date             string           `json:"date"`
	DayOfWeek        string           `json:"dayOfWeek"`
	Time             string           `json:"time"`
	MRTitle          string           `json:"mrTitle"`
	MRURL            string           `json:"mrUrl"`
	ProjectID        string           `json:"projectId"`
	MRIID            int              `json:"mrIid"`
	Model            string           `json:"model"`
	Provider         string           `json:"provider"`
	TokenUsage       tokens.Usage     `json:"tokenUsage"`
	EstimatedCostUSD float64          `json:"estimatedCostUSD"`
	EstimatedCostKRW int              `json:"estimatedCostKRW"`
	Status           string           `json:"status"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	DiffInfo         *domain.DiffInfo `json:"diffInfo,omitempty"`
}

// Log is a named collection of entries plus derived aggregates.
type Log struct {
	CreatedAt     string  `json:"createdAt"`
	LastUpdatedAt string  `json:"lastUpdatedAt"`
	TotalEntries  int     `json:"totalEntries"`
	TotalTokens   int     `json:"totalTokens"`
	TotalCostUSD  float64 `json:"totalCostUSD"`
	TotalCostKRW  int     `json:"totalCostKRW"`
	Entries       []Entry `json:"entries"`
}

// RecordOptions carries everything the pipeline knows about one
// completion.
type RecordOptions struct {
	MRTitle      string
	MRURL        string
	ProjectID    string
	MRIID        int
	Model        string
	Provider     string
	TokenUsage   tokens.Usage
	Status       string
	ErrorMessage string
	DiffInfo     *domain.DiffInfo
}

type writeRequest struct {
	entry Entry
	reply chan error
}

// Ledger owns the log files. All mutations go through a single writer
// goroutine so two pipelines finishing at the same time cannot lose an
// entry to a read-modify-write race.
type Ledger struct {
	dir    string
	calc   *Calculator
	now    func() time.Time
	writes chan writeRequest
	closed chan struct{}
}

// NewLedger creates a ledger rooted at dir and starts its writer.
func NewLedger(dir string, calc *Calculator) *Ledger {
	l := &Ledger{
		dir:    dir,
		calc:   calc,
		now:    time.Now,
		writes: make(chan writeRequest),
		closed: make(chan struct{}),
	}
	go l.writer()
	return l
}

// Close stops the writer after pending records are flushed.
func (l *Ledger) Close() {
	close(l.writes)
	<-l.closed
}

// Record appends one entry to the all-time, daily and monthly logs. The
// returned entry is complete even when persistence fails; the error is a
// *domain.PersistenceError the caller logs without escalating.
func (l *Ledger) Record(opts RecordOptions) (Entry, error) {
	now := l.now()
	usd, krw := l.calc.Cost(opts.TokenUsage.PromptTokens, opts.TokenUsage.CompletionTokens, opts.Model, opts.Provider)

	entry := Entry{
		ID:               uuid.NewString(),
		Date:             now.Format("2006-01-02"),
		DayOfWeek:        now.Format("Mon"),
		Time:             now.Format("15:04:05"),
		MRTitle:          opts.MRTitle,
		MRURL:            opts.MRURL,
		ProjectID:        opts.ProjectID,
		MRIID:            opts.MRIID,
		Model:            opts.Model,
		Provider:         opts.Provider,
		TokenUsage:       opts.TokenUsage,
		EstimatedCostUSD: usd,
		EstimatedCostKRW: krw,
		Status:           opts.Status,
		ErrorMessage:     opts.ErrorMessage,
		DiffInfo:         opts.DiffInfo,
	}

	req := writeRequest{entry: entry, reply: make(chan error, 1)}
	l.writes <- req
	return entry, <-req.reply
}

func (l *Ledger) writer() {
	defer close(l.closed)
	for req := range l.writes {
		req.reply <- l.append(req.entry)
	}
}

func (l *Ledger) append(entry Entry) error {
	month := entry.Date[:7]
	var errs []error

	for _, path := range []string{l.allPath(), l.dailyPath(entry.Date), l.monthlyPath(month)} {
		log := l.loadLog(path)
		log.Entries = append(log.Entries, entry)
		if err := l.saveLog(path, log); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) allPath() string             { return filepath.Join(l.dir, "all-entries.json") }
func (l *Ledger) dailyPath(date string) string { return filepath.Join(l.dir, "daily", date+".json") }
func (l *Ledger) monthlyPath(m string) string  { return filepath.Join(l.dir, "monthly", m+".json") }

// LoadAll reads the all-time log. A missing or unreadable file yields an
// empty log, matching append-only semantics on first run.
func (l *Ledger) LoadAll() Log { return l.loadLog(l.allPath()) }

// LoadDaily reads the log for one day (YYYY-MM-DD).
func (l *Ledger) LoadDaily(date string) Log { return l.loadLog(l.dailyPath(date)) }

// LoadMonthly reads the log for one month (YYYY-MM).
func (l *Ledger) LoadMonthly(month string) Log { return l.loadLog(l.monthlyPath(month)) }

func (l *Ledger) loadLog(path string) Log {
	data, err := os.ReadFile(path)
	if err != nil {
		return l.emptyLog()
	}
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return l.emptyLog()
	}
	return log
}

func (l *Ledger) emptyLog() Log {
	now := l.now().UTC().Format(time.RFC3339)
	return Log{CreatedAt: now, LastUpdatedAt: now, Entries: []Entry{}}
}

func (l *Ledger) saveLog(path string, log Log) error {
	log.Recompute()
	log.LastUpdatedAt = l.now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return domain.NewPersistenceError(path, err)
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return domain.NewPersistenceError(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.NewPersistenceError(path, err)
	}
	return nil
}

// Recompute rebuilds the aggregates from the entry set.
func (log *Log) Recompute() {
	log.TotalEntries = len(log.Entries)
	log.TotalTokens = 0
	log.TotalCostUSD = 0
	log.TotalCostKRW = 0
	for _, e := range log.Entries {
		log.TotalTokens += e.TokenUsage.TotalTokens
		log.TotalCostUSD += e.EstimatedCostUSD
		log.TotalCostKRW += e.EstimatedCostKRW
	}
}
