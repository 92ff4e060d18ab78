package payouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/luisargote/vendora-backend/pkg/square"
)

// DisburseRequest describes one vendor disbursement for the payout rail.
type DisburseRequest struct {
	PayoutID    string
	VendorID    string
	AmountCents int64
	Currency    string
	Destination string
}

// DisburseResult reports the rail's answer. Completed false with no error
// means the rail accepted the transfer but has not settled it yet.
type DisburseResult struct {
	Provider       string
	TransactionRef string
	Completed      bool
	FailureReason  string
}

// Gateway is the payout rail contract. Implementations must be safe for
// concurrent use.
type Gateway interface {
	Payout(ctx context.Context, req DisburseRequest) (*DisburseResult, error)
}

type squareGateway struct {
	client *square.Client
}

// NewSquareGateway adapts the Square client to the payout rail contract.
func NewSquareGateway(client *square.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &squareGateway{client: client}, nil
}

func (g *squareGateway) Payout(ctx context.Context, req DisburseRequest) (*DisburseResult, error) {
	payment, err := g.client.SubmitPayout(ctx, square.PayoutSubmitParams{
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		SourceID:       req.Destination,
		IdempotencyKey: fmt.Sprintf("payout-%s", req.PayoutID),
		Note:           fmt.Sprintf("vendor payout %s", req.PayoutID),
		ReferenceID:    req.PayoutID,
	})
	if err != nil {
		return nil, err
	}
	return &DisburseResult{
		Provider:       "square",
		TransactionRef: stringValue(payment.GetID()),
		Completed:      isSettled(payment.GetStatus()),
	}, nil
}

func isSettled(status *string) bool {
	if status == nil {
		return false
	}
	switch strings.ToUpper(*status) {
	case "COMPLETED", "APPROVED":
		return true
	}
	return false
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
