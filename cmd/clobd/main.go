// Command clobd demonstrates the multi-symbol ingestion layer: it wires one
// Book per symbol into a Router, reads "<symbol> <command...>" lines from
// stdin, and logs every trade and batch as it is processed. It opens no
// socket and persists nothing; it exists to exercise internal/ingest the
// way a real service would wire it, not to be one.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"clobengine/internal/book"
	"clobengine/internal/domain"
	"clobengine/internal/ingest"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	symbols := flag.String("symbols", "AAPL,MSFT", "comma-separated list of symbols to make markets in")
	batchSize := flag.Int("batch-size", 256, "target max batch size per symbol")
	coalesceMicros := flag.Int("coalesce-micros", 0, "coalescing wait window in microseconds, 0 to disable")
	emitTrades := flag.Bool("emit-trades", true, "forward matched trades on the outbound trade channel")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	books := make(map[string]*book.Book)
	for _, s := range strings.Split(*symbols, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		books[s] = book.New()
	}

	opts := ingest.Options{
		BatchSize:      *batchSize,
		EmitTrades:     *emitTrades,
		CoalesceMicros: *coalesceMicros,
	}
	router := ingest.StartWithBooks(ctx, books, opts)
	defer router.Stop()

	go logTrades(router)
	go logProgress(router)

	go readStdin(ctx, router)

	<-ctx.Done()
	log.Info().Msg("clobd shutting down")
}

func logTrades(router *ingest.Router) {
	trades := router.Trades()
	if trades == nil {
		return
	}
	for tt := range trades {
		log.Info().
			Str("symbol", tt.Symbol).
			Uint64("taker", uint64(tt.Trade.TakerID)).
			Uint64("maker", uint64(tt.Trade.MakerID)).
			Int64("price", int64(tt.Trade.Price)).
			Uint64("qty", uint64(tt.Trade.Qty)).
			Msg("trade")
	}
}

func logProgress(router *ingest.Router) {
	for p := range router.Progress() {
		log.Debug().Str("symbol", p.Symbol).Int("processed", p.Processed).Msg("batch processed")
	}
}

// readStdin parses "<symbol> limit {buy|sell} <price> <qty>" /
// "<symbol> market {buy|sell} <qty>" / "<symbol> cancel <order_id>" lines
// and routes them through the shared inbound channel.
func readStdin(ctx context.Context, router *ingest.Router) {
	scanner := bufio.NewScanner(os.Stdin)
	inbound := router.Inbound()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			log.Warn().Str("line", line).Msg("malformed input")
			continue
		}

		cmd, err := parseRawCommand(fields[1:])
		if err != nil {
			log.Warn().Str("line", line).Err(err).Msg("malformed input")
			continue
		}

		select {
		case inbound <- ingest.TaggedRawCommand{Symbol: fields[0], Cmd: cmd}:
		case <-ctx.Done():
			return
		}
	}
}

func parseRawCommand(fields []string) (domain.RawCommand, error) {
	switch fields[0] {
	case "limit":
		side, err := parseSide(fields[1])
		if err != nil {
			return domain.RawCommand{}, err
		}
		price, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return domain.RawCommand{}, err
		}
		qty, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return domain.RawCommand{}, err
		}
		return domain.RawLimit(side, domain.Price(price), domain.Qty(qty)), nil
	case "market":
		side, err := parseSide(fields[1])
		if err != nil {
			return domain.RawCommand{}, err
		}
		qty, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return domain.RawCommand{}, err
		}
		return domain.RawMarket(side, domain.Qty(qty)), nil
	case "cancel":
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return domain.RawCommand{}, err
		}
		return domain.RawCancel(domain.OrderId(id)), nil
	default:
		return domain.RawCommand{}, errInvalidCommand(fields[0])
	}
}

type errInvalidCommand string

func (e errInvalidCommand) Error() string { return "invalid command: " + string(e) }

func parseSide(s string) (domain.Side, error) {
	switch s {
	case "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return 0, errInvalidCommand(s)
	}
}
