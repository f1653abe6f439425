// Package risk enforces the portfolio-level limits that gate every new
// position: a daily loss cap, a ceiling on concurrent open positions, and a
// per-position size ceiling. Like the ledger it is single-goroutine state.
//
// A denial is not an error. CanOpen returns a boolean with a reason so
// callers drop the signal and move on; error values are reserved for real
// failures.
package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/internal/fsutil"
)

// Limits are the configured portfolio constraints.
type Limits struct {
	MaxOpenPositions  int     // concurrent positions across all strategies
	MaxPositionPct    float64 // margin ceiling as a fraction of base capital
	DailyLossLimitPct float64 // daily loss cap as a fraction of base capital; <= 0 disables
}

// State is the persisted counters file: which calendar day they belong to,
// realized PnL and trade count accumulated that day, and the open-position
// count. Kept in a separate file from the trading snapshot so risk history
// can be audited on its own.
type State struct {
	Date          string    `json:"date"`
	DailyPnL      float64   `json:"daily_pnl"`
	TradesToday   int       `json:"trades_today"`
	OpenPositions int       `json:"open_positions"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Manager applies Limits against running State. Both the loss cap and the
// position-size ceiling are measured against the capital the manager was
// constructed with, so a swinging account balance does not move the limits
// mid-day.
type Manager struct {
	limits  Limits
	capital float64
	state   State
	path    string // counters file; empty disables persistence
	log     *logrus.Logger
	now     func() time.Time
}

func New(limits Limits, capital float64, path string, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Manager{
		limits:  limits,
		capital: capital,
		path:    path,
		log:     log,
		now:     time.Now,
	}
	m.state.Date = m.day()
	return m
}

func (m *Manager) day() string {
	return m.now().Format("2006-01-02")
}

// Load restores the counters file if it exists. Counters from a previous day
// are discarded; the day's PnL does not carry over a restart within the same
// day, but a stale file must not block today's trading either.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read risk state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse risk state %s: %w", m.path, err)
	}
	if s.Date == m.day() {
		m.state = s
	}
	return nil
}

func (m *Manager) save() {
	if m.path == "" {
		return
	}
	m.state.UpdatedAt = m.now()
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err == nil {
		err = fsutil.WriteFileAtomic(m.path, data, 0o644)
	}
	if err != nil {
		m.log.Warnf("save risk state: %v", err)
	}
}

// rollover resets the daily counters when the calendar day has changed since
// they were last touched. OpenPositions survives the boundary; positions do
// not close at midnight.
func (m *Manager) rollover() {
	if d := m.day(); d != m.state.Date {
		m.state.Date = d
		m.state.DailyPnL = 0
		m.state.TradesToday = 0
		m.save()
	}
}

// CanOpen checks a proposed position of the given margin size against all
// limits. Approval is advisory: it reserves nothing, and the caller must
// follow up with RecordOpen to keep the counters honest.
func (m *Manager) CanOpen(sizeUSD float64) (bool, string) {
	m.rollover()

	if limit := m.capital * m.limits.DailyLossLimitPct; m.limits.DailyLossLimitPct > 0 && m.state.DailyPnL <= -limit {
		return false, fmt.Sprintf("daily loss limit reached: $%.2f/%.2f", -m.state.DailyPnL, limit)
	}
	if m.state.OpenPositions >= m.limits.MaxOpenPositions {
		return false, fmt.Sprintf("max positions reached: %d/%d", m.state.OpenPositions, m.limits.MaxOpenPositions)
	}
	if max := m.MarginCap(); sizeUSD > max {
		return false, fmt.Sprintf("position too large: $%.2f > $%.2f", sizeUSD, max)
	}
	return true, "OK"
}

// MarginCap returns the largest margin the size limit allows for a single
// position. Callers size entries against their running balance and clamp to
// this cap, so CanOpen's size check only rejects sizes chosen elsewhere.
func (m *Manager) MarginCap() float64 {
	return m.capital * m.limits.MaxPositionPct
}

// RecordOpen bumps the open-position counter after a successful open.
func (m *Manager) RecordOpen() {
	m.rollover()
	m.state.OpenPositions++
	m.save()
}

// RecordClose decrements the open-position counter.
func (m *Manager) RecordClose() {
	if m.state.OpenPositions > 0 {
		m.state.OpenPositions--
	}
	m.save()
}

// RecordTradeResult folds a realized PnL into the daily totals.
func (m *Manager) RecordTradeResult(pnl float64) {
	m.rollover()
	m.state.DailyPnL += pnl
	m.state.TradesToday++
	m.save()
}

// DailyPnL returns today's realized PnL, rolling the day over if needed.
func (m *Manager) DailyPnL() float64 {
	m.rollover()
	return m.state.DailyPnL
}

// SetOpenPositions overrides the open-position counter, used after restoring
// a ledger snapshot so the two cannot drift.
func (m *Manager) SetOpenPositions(n int) {
	m.state.OpenPositions = n
	m.save()
}

// State returns a copy of the current counters.
func (m *Manager) State() State {
	m.rollover()
	return m.state
}

// Status renders the counters as a short human-readable report.
func (m *Manager) Status() string {
	m.rollover()
	limit := m.capital * m.limits.DailyLossLimitPct
	return fmt.Sprintf(
		"Risk Status | Date: %s\nDaily PnL: $%+.2f / -$%.2f\nPositions: %d/%d\nTrades today: %d",
		m.state.Date, m.state.DailyPnL, limit,
		m.state.OpenPositions, m.limits.MaxOpenPositions, m.state.TradesToday,
	)
}
