// Command clob is a line-oriented REPL over a single in-memory order book,
// for manual exercising of internal/book. It is not a network server and
// carries no persistence: every command is applied directly against one
// process-local Book.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"clobengine/internal/book"
	"clobengine/internal/domain"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr))
}

func run(in *os.File, out, errOut *os.File) int {
	bk := book.New()
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "quit":
			return 0
		case "limit":
			handleLimit(bk, fields, out, errOut)
		case "market":
			handleMarket(bk, fields, out, errOut)
		case "cancel":
			handleCancel(bk, fields, out, errOut)
		default:
			fmt.Fprintf(errOut, "unknown command: %s\n", fields[0])
		}
	}
	return 0
}

func handleLimit(bk *book.Book, fields []string, out, errOut *os.File) {
	if len(fields) != 4 {
		fmt.Fprintln(errOut, "usage: limit {buy|sell} <price> <qty>")
		return
	}
	side, err := parseSide(fields[1])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	price, err := parseInt(fields[2])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	qty, err := parseInt(fields[3])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}

	id, trades, remaining, err := bk.SubmitLimit(side, domain.Price(price), domain.Qty(qty))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	printResult(out, id, trades, remaining)
}

func handleMarket(bk *book.Book, fields []string, out, errOut *os.File) {
	if len(fields) != 3 {
		fmt.Fprintln(errOut, "usage: market {buy|sell} <qty>")
		return
	}
	side, err := parseSide(fields[1])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	qty, err := parseInt(fields[2])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}

	id, trades, remaining, err := bk.SubmitMarket(side, domain.Qty(qty))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	printResult(out, id, trades, remaining)
}

func handleCancel(bk *book.Book, fields []string, out, errOut *os.File) {
	if len(fields) != 2 {
		fmt.Fprintln(errOut, "usage: cancel <order_id>")
		return
	}
	id, err := parseInt(fields[1])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	order, err := bk.Cancel(domain.OrderId(id))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return
	}
	fmt.Fprintf(out, "cancelled id=%d remaining=%d\n", order.ID, order.Quantity)
}

func printResult(out *os.File, id domain.OrderId, trades []domain.Trade, remaining domain.Qty) {
	fmt.Fprintf(out, "id=%d remaining=%d trades=%d\n", id, remaining, len(trades))
	for _, tr := range trades {
		fmt.Fprintf(out, "  trade taker=%d maker=%d price=%d qty=%d\n", tr.TakerID, tr.MakerID, tr.Price, tr.Qty)
	}
}

func parseSide(s string) (domain.Side, error) {
	switch s {
	case "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q: expected buy or sell", s)
	}
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
