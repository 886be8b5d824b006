package ingest

import (
	"context"
	"testing"
	"time"

	"clobengine/internal/book"
	"clobengine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

const testTimeout = 2 * time.Second

func requireTrade(t *testing.T, ch <-chan TaggedTrade) TaggedTrade {
	t.Helper()
	select {
	case tt := <-ch:
		return tt
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for trade")
		return TaggedTrade{}
	}
}

func requireProgress(t *testing.T, ch <-chan Progress) Progress {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for progress")
		return Progress{}
	}
}

func newIngestor(symbol string, opts Options) (*SymbolIngestor, *tomb.Tomb, chan TaggedTrade, chan Progress) {
	trades := make(chan TaggedTrade, defaultTradeBuffer)
	progress := make(chan Progress, defaultProgressBuffer)
	w := NewSymbolIngestor(symbol, book.New(), opts, trades, progress)
	t, _ := tomb.WithContext(context.Background())
	w.Start(t)
	return w, t, trades, progress
}

func TestSymbolIngestor_SingleCommandBatchNoCoalesce(t *testing.T) {
	w, tb, trades, progress := newIngestor("AAPL", Options{BatchSize: 8, EmitTrades: true})
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	w.Inbound() <- domain.RawLimit(domain.Buy, 100, 5)

	p := requireProgress(t, progress)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, 1, p.Processed)

	select {
	case <-trades:
		t.Fatal("unexpected trade for an unmatched resting order")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSymbolIngestor_CrossingOrderEmitsTaggedTrade(t *testing.T) {
	w, tb, trades, progress := newIngestor("AAPL", Options{BatchSize: 8, EmitTrades: true})
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	w.Inbound() <- domain.RawLimit(domain.Buy, 100, 5)
	requireProgress(t, progress)

	w.Inbound() <- domain.RawLimit(domain.Sell, 100, 5)
	requireProgress(t, progress)

	tt := requireTrade(t, trades)
	assert.Equal(t, "AAPL", tt.Symbol)
	assert.Equal(t, domain.Qty(5), tt.Trade.Qty)
	assert.Equal(t, domain.Price(100), tt.Trade.Price)
}

func TestSymbolIngestor_AssignsLocalSeqInReceiptOrder(t *testing.T) {
	w, tb, _, progress := newIngestor("AAPL", Options{BatchSize: 1, EmitTrades: false})
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	w.Inbound() <- domain.RawLimit(domain.Buy, 100, 1)
	p1 := requireProgress(t, progress)
	w.Inbound() <- domain.RawLimit(domain.Buy, 100, 1)
	p2 := requireProgress(t, progress)

	assert.Equal(t, 1, p1.Processed)
	assert.Equal(t, 1, p2.Processed)
	assert.Equal(t, domain.Seq(2), w.seq)
}

func TestSymbolIngestor_NonBlockingBatchDrainsUpToBatchSize(t *testing.T) {
	w, tb, _, progress := newIngestor("AAPL", Options{BatchSize: 3, EmitTrades: false})
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	// Send the first command to wake the worker, then queue the rest before
	// it has a chance to drain — fillBatch's non-blocking drain should pick
	// up all three in one pass since BatchSize is 3.
	inbound := w.Inbound()
	inbound <- domain.RawLimit(domain.Buy, 100, 1)
	inbound <- domain.RawLimit(domain.Buy, 99, 1)
	inbound <- domain.RawLimit(domain.Buy, 98, 1)

	p := requireProgress(t, progress)
	assert.Equal(t, 3, p.Processed)
}

func TestSymbolIngestor_CoalesceWindowWaitsForMoreCommands(t *testing.T) {
	w, tb, _, progress := newIngestor("AAPL", Options{BatchSize: 10, EmitTrades: false, CoalesceMicros: 50_000})
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	inbound := w.Inbound()
	inbound <- domain.RawLimit(domain.Buy, 100, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		inbound <- domain.RawLimit(domain.Buy, 99, 1)
	}()

	p := requireProgress(t, progress)
	assert.Equal(t, 2, p.Processed)
}

func TestSymbolIngestor_ClosingInboundStopsTheWorker(t *testing.T) {
	w, tb, _, _ := newIngestor("AAPL", Options{BatchSize: 8})

	close(w.inbound)

	select {
	case <-tb.Dead():
	case <-time.After(testTimeout):
		t.Fatal("worker did not exit after inbound closed")
	}
	assert.NoError(t, tb.Err())
}

func TestSymbolIngestor_KillStopsTheWorkerEvenMidWait(t *testing.T) {
	w, tb, _, _ := newIngestor("AAPL", Options{BatchSize: 8, CoalesceMicros: 1_000_000})
	w.Inbound() <- domain.RawLimit(domain.Buy, 100, 1)

	// Give the worker time to enter its coalescing wait, then kill it.
	time.Sleep(10 * time.Millisecond)
	tb.Kill(nil)

	select {
	case <-tb.Dead():
	case <-time.After(testTimeout):
		t.Fatal("worker did not exit after kill")
	}
}

func TestSymbolIngestor_FailedCancelDoesNotForwardTrades(t *testing.T) {
	bk := book.New()
	trades := make(chan TaggedTrade, defaultTradeBuffer)
	progress := make(chan Progress, defaultProgressBuffer)
	w := NewSymbolIngestor("AAPL", bk, Options{BatchSize: 1, EmitTrades: true}, trades, progress)
	tb, _ := tomb.WithContext(context.Background())
	w.Start(tb)
	defer func() { tb.Kill(nil); _ = tb.Wait() }()

	w.Inbound() <- domain.RawCancel(999)
	p := requireProgress(t, progress)
	assert.Equal(t, 1, p.Processed)

	select {
	case <-trades:
		t.Fatal("a cancel of an unknown order must not emit a trade")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewSymbolIngestor_SizesInboundToBatchSize(t *testing.T) {
	w := NewSymbolIngestor("AAPL", book.New(), Options{BatchSize: 4}, nil, nil)
	assert.Equal(t, 4, cap(w.inbound))
	require.Equal(t, "AAPL", w.symbol)
}
