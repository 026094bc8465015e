package staking

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Portfolio tracks open stake exposure across concurrent
// recommendations. Exposure is released when a bet settles.
type Portfolio struct {
	mu   sync.RWMutex
	open map[string]decimal.Decimal // recommendation id -> stake
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{open: make(map[string]decimal.Decimal)}
}

// Add registers an open stake under a recommendation id.
func (p *Portfolio) Add(recommendationID string, stake decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open[recommendationID] = stake
}

// Release drops a settled recommendation's stake from open exposure.
func (p *Portfolio) Release(recommendationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.open, recommendationID)
}

// Exposure returns the total open stake.
func (p *Portfolio) Exposure() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := decimal.Zero
	for _, stake := range p.open {
		total = total.Add(stake)
	}
	return total
}

// OpenCount returns the number of open recommendations.
func (p *Portfolio) OpenCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.open)
}
