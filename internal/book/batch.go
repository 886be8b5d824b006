package book

import (
	"sort"

	"clobengine/internal/domain"
)

// ProcessCommandsBatchCheckedInto stable-sorts cmds by Seq, validates strict
// monotonicity, and — only if that validation passes — dispatches each
// command into the matching kernel in sorted order. Trades are appended to
// the caller-owned buffer. On ErrInvalidSequence no command is applied: the
// call is atomic with respect to book state.
//
// Seq is a replay witness, not a correctness requirement: single-threaded
// application is inherently ordered. Recording and validating it is what
// lets an external system check cross-machine replay equivalence.
func (b *Book) ProcessCommandsBatchCheckedInto(cmds []domain.Command, trades *[]domain.Trade) ([]domain.CommandResult, error) {
	sorted := make([]domain.Command, len(cmds))
	copy(sorted, cmds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seq < sorted[j].Seq
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Seq <= sorted[i-1].Seq {
			return nil, domain.ErrInvalidSequence
		}
	}

	results := make([]domain.CommandResult, len(sorted))
	for i, cmd := range sorted {
		results[i] = b.dispatch(cmd, trades)
	}
	return results, nil
}

func (b *Book) dispatch(cmd domain.Command, trades *[]domain.Trade) domain.CommandResult {
	switch cmd.Kind {
	case domain.CmdLimit:
		id, remaining, err := b.SubmitLimitInto(cmd.Side, cmd.Price, cmd.Qty, trades)
		return domain.CommandResult{Seq: cmd.Seq, ID: id, Remaining: remaining, Err: err}
	case domain.CmdMarket:
		id, remaining, err := b.SubmitMarketInto(cmd.Side, cmd.Qty, trades)
		return domain.CommandResult{Seq: cmd.Seq, ID: id, Remaining: remaining, Err: err}
	case domain.CmdCancel:
		_, err := b.Cancel(cmd.ID)
		return domain.CommandResult{Seq: cmd.Seq, ID: cmd.ID, Err: err}
	default:
		return domain.CommandResult{Seq: cmd.Seq, Err: domain.ErrInvalidSide}
	}
}
