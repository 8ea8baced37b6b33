package ledger

import "sync"

// MemoryLedger keeps balances in process. Used for tests and for running
// the server without an external ledger service.
type MemoryLedger struct {
	lock     sync.Mutex
	balances map[string]int64
	results  map[string][]RoundResult
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int64),
		results:  make(map[string][]RoundResult),
	}
}

// SetBalance seeds a player balance.
func (m *MemoryLedger) SetBalance(playerID string, amount int64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.balances[playerID] = amount
}

func (m *MemoryLedger) GetBalance(playerID string) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.balances[playerID], nil
}

func (m *MemoryLedger) Deduct(playerID string, amount int64) bool {
	if amount < 0 {
		return false
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.balances[playerID] < amount {
		return false
	}
	m.balances[playerID] -= amount
	return true
}

func (m *MemoryLedger) Credit(playerID string, amount int64) {
	if amount <= 0 {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.balances[playerID] += amount
}

func (m *MemoryLedger) RecordRoundResult(playerID string, result RoundResult) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.results[playerID] = append(m.results[playerID], result)
}

// RoundResults returns the recorded entries for a player. Test helper.
func (m *MemoryLedger) RoundResults(playerID string) []RoundResult {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.results[playerID]
}
