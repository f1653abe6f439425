package ledger

import "errors"

var (
	// ErrAlreadyOpen is returned by Open when the strategy already holds a
	// position. The operation is a no-op.
	ErrAlreadyOpen = errors.New("ledger: position already open for strategy")

	// ErrNoPosition is returned by CloseAtPrice when the strategy holds no
	// position. The operation is a no-op.
	ErrNoPosition = errors.New("ledger: no open position for strategy")
)
