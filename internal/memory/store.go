package memory

// Store fact and conversation storage interface
type Store interface {
	// Long-term facts
	CreateFact(fact *Fact) error
	GetFacts(userID string) ([]*Fact, error)
	GetFact(id string) (*Fact, error)
	UpdateFactContent(id, content string, importance int) error
	BoostFact(id string) error
	DeleteFact(userID, id string) error
	ClearFacts(userID string) error
	SearchFactsKeyword(userID, query string, limit int) ([]*Fact, error)
	CountByCategory(userID string) (map[string]int, error)

	// Conversation history
	SaveTurn(turn *Turn) error
	RecentTurns(userID string, limit int) ([]*Turn, error)

	// Close connection
	Close() error
}
