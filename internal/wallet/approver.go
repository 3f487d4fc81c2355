package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// SignRequest describes a transaction waiting for approval.
type SignRequest struct {
	TxHash  string
	Fee     uint64
	Outputs int
	// minted asset units with their quantities
	Mint    map[string]int64
	Partial bool
}

// Approver decides whether a key wallet signs a transaction.
type Approver interface {
	Approve(ctx context.Context, req SignRequest) (bool, error)
}

type ApproverFunc func(ctx context.Context, req SignRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req SignRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprove signs everything.
func AutoApprove() Approver {
	return ApproverFunc(func(context.Context, SignRequest) (bool, error) { return true, nil })
}

// PromptApprover asks on a terminal. Anything but "y" or "yes" declines.
// One reader goroutine serves every prompt, so a prompt abandoned on context
// cancel does not leave a second reader racing for input.
type PromptApprover struct {
	out   io.Writer
	in    *bufio.Reader
	once  sync.Once
	lines chan string
}

func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{out: out, in: bufio.NewReader(in), lines: make(chan string)}
}

func (p *PromptApprover) readLines() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if line != "" || err == nil {
			p.lines <- line
		}
		if err != nil {
			return
		}
	}
}

func (p *PromptApprover) Approve(ctx context.Context, req SignRequest) (bool, error) {
	p.once.Do(func() { go p.readLines() })

	fmt.Fprintf(p.out, "Transaction %s\n  fee:     %s ADA\n  outputs: %d\n",
		req.TxHash, decimal.New(int64(req.Fee), -6).StringFixed(6), req.Outputs)
	for unit, qty := range req.Mint {
		fmt.Fprintf(p.out, "  mint:    %d %s\n", qty, unit)
	}
	fmt.Fprint(p.out, "Sign? [y/N]: ")

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
