package ingest

import (
	"time"

	"clobengine/internal/book"
	"clobengine/internal/domain"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// TaggedTrade is a trade tagged with the symbol whose book produced it.
type TaggedTrade struct {
	Symbol string
	Trade  domain.Trade
}

// Progress reports how many commands a symbol's ingestor just processed in
// one batch.
type Progress struct {
	Symbol    string
	Processed int
}

// SymbolIngestor accepts RawCommands for one symbol on a bounded inbound
// channel, assigns a local Seq in receipt order, forms batches according to
// Options, and drives that symbol's Book through the batch processor. It
// runs strictly single-threaded over its own Book: state machine per worker
// is Idle -> Accumulating -> Dispatching -> Accumulating -> ... -> Draining
// -> Stopped.
type SymbolIngestor struct {
	symbol string
	book   *book.Book
	opts   Options

	inbound  chan domain.RawCommand
	tradeOut chan<- TaggedTrade
	doneOut  chan<- Progress

	seq domain.Seq
}

// NewSymbolIngestor creates an ingestor for symbol over bk. tradeOut and
// doneOut may be nil (progress/trades are simply not forwarded).
func NewSymbolIngestor(symbol string, bk *book.Book, opts Options, tradeOut chan<- TaggedTrade, doneOut chan<- Progress) *SymbolIngestor {
	return &SymbolIngestor{
		symbol:   symbol,
		book:     bk,
		opts:     opts,
		inbound:  make(chan domain.RawCommand, opts.batchSize()),
		tradeOut: tradeOut,
		doneOut:  doneOut,
	}
}

// Inbound is the send side of this ingestor's bounded command channel.
// Closing it (when no other sender holds it) is the normal shutdown signal:
// the worker drains whatever is already queued, processes one final batch,
// then exits.
func (w *SymbolIngestor) Inbound() chan<- domain.RawCommand {
	return w.inbound
}

// Start spawns the ingestor's run loop under t, a tomb shared with sibling
// workers and the router so that Kill propagates to all of them.
func (w *SymbolIngestor) Start(t *tomb.Tomb) {
	t.Go(func() error { return w.run(t) })
}

func (w *SymbolIngestor) run(t *tomb.Tomb) error {
	trades := make([]domain.Trade, 0, w.opts.batchSize())
	cmds := make([]domain.Command, 0, w.opts.batchSize())

	for {
		cmds = cmds[:0]

		// Block for at least one command, or die.
		select {
		case <-t.Dying():
			return nil
		case raw, ok := <-w.inbound:
			if !ok {
				return nil
			}
			w.seq++
			cmds = append(cmds, raw.WithSeq(w.seq))
		}

		w.fillBatch(t, &cmds)

		trades = trades[:0]
		results, err := w.book.ProcessCommandsBatchCheckedInto(cmds, &trades)
		if err != nil {
			log.Error().Str("symbol", w.symbol).Int("batch", len(cmds)).Err(err).
				Msg("batch rejected, no commands applied")
		} else {
			for _, r := range results {
				if r.Err != nil {
					log.Warn().Str("symbol", w.symbol).Uint64("seq", uint64(r.Seq)).
						Err(r.Err).Msg("command failed")
				}
			}
		}

		if w.opts.EmitTrades && w.tradeOut != nil {
			for _, tr := range trades {
				select {
				case w.tradeOut <- TaggedTrade{Symbol: w.symbol, Trade: tr}:
				case <-t.Dying():
					return nil
				}
			}
		}

		if w.doneOut != nil {
			select {
			case w.doneOut <- Progress{Symbol: w.symbol, Processed: len(cmds)}:
			case <-t.Dying():
				return nil
			}
		}
	}
}

// fillBatch grows cmds beyond the first command already in it: with a
// coalescing window configured, it waits up to that window while
// opportunistically draining more commands, stopping early at batch size;
// otherwise it does a single non-blocking drain up to batch size.
func (w *SymbolIngestor) fillBatch(t *tomb.Tomb, cmds *[]domain.Command) {
	limit := w.opts.batchSize()
	window := w.opts.coalesceWindow()

	if window <= 0 {
		for len(*cmds) < limit {
			select {
			case raw, ok := <-w.inbound:
				if !ok {
					return
				}
				w.seq++
				*cmds = append(*cmds, raw.WithSeq(w.seq))
			default:
				return
			}
		}
		return
	}

	deadline := time.Now().Add(window)
	for len(*cmds) < limit {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		timer := time.NewTimer(remaining)
		select {
		case raw, ok := <-w.inbound:
			timer.Stop()
			if !ok {
				return
			}
			w.seq++
			*cmds = append(*cmds, raw.WithSeq(w.seq))
		case <-timer.C:
			return
		case <-t.Dying():
			timer.Stop()
			return
		}
	}
}
