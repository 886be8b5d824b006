package ingest

import (
	"context"
	"sync/atomic"

	"clobengine/internal/book"
	"clobengine/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// TaggedRawCommand is a seqless command addressed to a symbol, the shape
// carried on a Router's shared inbound channel.
type TaggedRawCommand struct {
	Symbol string
	Cmd    domain.RawCommand
}

// Router fans inbound (symbol, command) messages out to one SymbolIngestor
// per symbol and owns the shared outbound trade and progress channels. Each
// symbol is an independent consistency domain: there is no ordering
// guarantee across symbols, only within one.
//
// Unknown symbols arriving on the shared inbound channel are reported (a
// warning is logged and a counter incremented) rather than silently
// dropped — see DESIGN.md for this Open Question decision.
type Router struct {
	runID uuid.UUID
	opts  Options

	routes map[string]chan<- domain.RawCommand

	inbound  chan TaggedRawCommand
	tradeOut chan TaggedTrade
	doneOut  chan Progress

	unknownSymbols atomic.Uint64

	t *tomb.Tomb
}

// StartWithBooks spawns one ingestor per (symbol, Book) pair plus the
// router's own dispatch goroutine, all supervised under a shared tomb tied
// to ctx: cancelling ctx (or calling Stop) kills every worker.
func StartWithBooks(ctx context.Context, books map[string]*book.Book, opts Options) *Router {
	t, _ := tomb.WithContext(ctx)

	r := &Router{
		runID:   uuid.New(),
		opts:    opts,
		routes:  make(map[string]chan<- domain.RawCommand, len(books)),
		inbound: make(chan TaggedRawCommand, opts.batchSize()),
		doneOut: make(chan Progress, defaultProgressBuffer),
		t:       t,
	}
	if opts.EmitTrades {
		r.tradeOut = make(chan TaggedTrade, defaultTradeBuffer)
	}

	for symbol, bk := range books {
		ing := NewSymbolIngestor(symbol, bk, opts, r.tradeChan(), r.doneOut)
		r.routes[symbol] = ing.Inbound()
		ing.Start(t)
	}

	t.Go(r.route)

	log.Info().Str("runID", r.runID.String()).Int("symbols", len(books)).
		Msg("router started")
	return r
}

func (r *Router) tradeChan() chan<- TaggedTrade {
	if !r.opts.EmitTrades {
		return nil
	}
	return r.tradeOut
}

// route is the router's own goroutine: it reads (symbol, command) off the
// shared inbound channel and forwards each to the matching per-symbol
// channel, blocking (applying back-pressure) if that channel is full.
func (r *Router) route() error {
	for {
		select {
		case <-r.t.Dying():
			return nil
		case tc, ok := <-r.inbound:
			if !ok {
				return nil
			}
			dest, known := r.routes[tc.Symbol]
			if !known {
				r.unknownSymbols.Add(1)
				log.Warn().Str("runID", r.runID.String()).Str("symbol", tc.Symbol).
					Msg("dropping command for unknown symbol")
				continue
			}
			select {
			case dest <- tc.Cmd:
			case <-r.t.Dying():
				return nil
			}
		}
	}
}

// Inbound is the send side of the shared (symbol, command) channel routed
// by this Router's dispatch goroutine.
func (r *Router) Inbound() chan<- TaggedRawCommand {
	return r.inbound
}

// Routes returns the per-symbol senders, letting producers bypass the
// router and send directly to a symbol's ingestor.
func (r *Router) Routes() map[string]chan<- domain.RawCommand {
	out := make(map[string]chan<- domain.RawCommand, len(r.routes))
	for k, v := range r.routes {
		out[k] = v
	}
	return out
}

// Trades is the shared outbound trade channel, or nil if Options.EmitTrades
// is false.
func (r *Router) Trades() <-chan TaggedTrade {
	return r.tradeOut
}

// Progress is the shared outbound progress channel.
func (r *Router) Progress() <-chan Progress {
	return r.doneOut
}

// UnknownSymbolCount returns how many inbound messages named a symbol this
// Router has no ingestor for.
func (r *Router) UnknownSymbolCount() uint64 {
	return r.unknownSymbols.Load()
}

// Stop kills every worker's tomb and blocks until they have all exited.
func (r *Router) Stop() error {
	r.t.Kill(nil)
	return r.t.Wait()
}
