package models

type PlayerState string

const (
	PlayerActive   PlayerState = "ACTIVE"
	PlayerBankrupt PlayerState = "BANKRUPT"
)

// Player is one participant of a game. Cash and net worth are never stored,
// see package ledger.
type Player struct {
	ID                  int64       `json:"id"`
	GameCode            string      `json:"gameCode"`
	Username            string      `json:"username"` // unique per game
	Email               string      `json:"-"`        // unique per process
	Index               int         `json:"index"`    // position in the land cycle
	State               PlayerState `json:"state"`
	Turn                bool        `json:"turn"`
	Host                bool        `json:"host"`
	BankruptcyOrder     int         `json:"bankruptcyOrder,omitempty"`
	LastInvestStep      int         `json:"lastInvestStep,omitempty"`
	LastSkippedStep     int         `json:"lastSkippedStep,omitempty"`
	RemainingSkipsCount int         `json:"remainingSkipsCount,omitempty"`
}

func (p *Player) IsBankrupt() bool {
	return p.State == PlayerBankrupt
}
