// Package domain holds the scalar and entity types shared by the order
// book, the batch processor, and the ingestion layer.
package domain

import "errors"

// Price is a fixed-point tick value. No floating point on the hot path.
type Price int64

// Qty is a strictly positive quantity on input; it is driven to zero as an
// order is filled.
type Qty uint64

// OrderId uniquely identifies a resting or historical order within one book.
// Assigned monotonically from 1.
type OrderId uint64

// Seq is the replay witness: strictly monotonically increasing per symbol
// within any validated batch.
type Seq uint64

// Side is the side of an order or resting level.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType distinguishes a resting limit order from a transient market order.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

var (
	// ErrUnknownOrder is returned by Cancel for an id not present in the book.
	ErrUnknownOrder = errors.New("clobengine: unknown order")
	// ErrInvalidSide is reserved for command-construction checks.
	ErrInvalidSide = errors.New("clobengine: invalid side")
	// ErrInvalidSequence is raised only by the batch processor.
	ErrInvalidSequence = errors.New("clobengine: invalid sequence")
	// ErrInvalidQty rejects non-positive quantities at the API boundary.
	ErrInvalidQty = errors.New("clobengine: quantity must be positive")
	// ErrInvalidPrice rejects non-positive limit prices at the API boundary.
	ErrInvalidPrice = errors.New("clobengine: price must be positive")
)

// Order is an accepted limit order currently resting, or the transient
// representation of an in-flight taker. It lives exactly once in exactly one
// price level.
type Order struct {
	ID       OrderId
	Side     Side
	Price    Price // meaningless (zero) for a pure market taker
	Quantity Qty   // remaining quantity
}

// Trade is an immutable record of one match. Price is always the maker's
// resting price, never the taker's.
type Trade struct {
	TakerID OrderId
	MakerID OrderId
	Price   Price
	Qty     Qty
}

// CommandKind tags the Command union.
type CommandKind int

const (
	CmdLimit CommandKind = iota
	CmdMarket
	CmdCancel
)

// Command is the tagged union dispatched by the batch processor. Seq is the
// replay witness; RawCommand below is the seqless variant accepted by the
// ingestor before it assigns one.
type Command struct {
	Kind  CommandKind
	Seq   Seq
	Side  Side
	Price Price   // Limit only
	Qty   Qty     // Limit, Market
	ID    OrderId // Cancel only
}

// LimitCommand builds a Limit command with the given sequence number.
func LimitCommand(seq Seq, side Side, price Price, qty Qty) Command {
	return Command{Kind: CmdLimit, Seq: seq, Side: side, Price: price, Qty: qty}
}

// MarketCommand builds a Market command with the given sequence number.
func MarketCommand(seq Seq, side Side, qty Qty) Command {
	return Command{Kind: CmdMarket, Seq: seq, Side: side, Qty: qty}
}

// CancelCommand builds a Cancel command with the given sequence number.
func CancelCommand(seq Seq, id OrderId) Command {
	return Command{Kind: CmdCancel, Seq: seq, ID: id}
}

// CommandResult is the per-command outcome recorded by the batch processor,
// in the same order as the sorted batch.
type CommandResult struct {
	Seq       Seq
	ID        OrderId
	Remaining Qty
	Err       error
}

// RawCommand is a Command before a local Seq has been assigned to it by an
// ingestor. Producers submit these; the ingestor stamps a Seq in receipt
// order and turns it into a Command.
type RawCommand struct {
	Kind  CommandKind
	Side  Side
	Price Price
	Qty   Qty
	ID    OrderId
}

// WithSeq stamps a RawCommand with a locally assigned sequence number.
func (r RawCommand) WithSeq(seq Seq) Command {
	return Command{Kind: r.Kind, Seq: seq, Side: r.Side, Price: r.Price, Qty: r.Qty, ID: r.ID}
}

// RawLimit builds a seqless Limit command.
func RawLimit(side Side, price Price, qty Qty) RawCommand {
	return RawCommand{Kind: CmdLimit, Side: side, Price: price, Qty: qty}
}

// RawMarket builds a seqless Market command.
func RawMarket(side Side, qty Qty) RawCommand {
	return RawCommand{Kind: CmdMarket, Side: side, Qty: qty}
}

// RawCancel builds a seqless Cancel command.
func RawCancel(id OrderId) RawCommand {
	return RawCommand{Kind: CmdCancel, ID: id}
}
