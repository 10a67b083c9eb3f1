package recorder

import "context"

// NoopJournal is used when SQLite is not configured. Nothing is ever
// reported as sent, so deduplication falls back to the lookback window.
type NoopJournal struct{}

func NewNoopJournal() *NoopJournal { return &NoopJournal{} }

func (n *NoopJournal) WasSent(_ context.Context, _ string) (bool, error) { return false, nil }
func (n *NoopJournal) MarkSent(_ context.Context, _, _ string) error     { return nil }
func (n *NoopJournal) Close() error                                      { return nil }
