package payments

import (
	"fmt"

	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

// legalTransitions is the full payment state machine. Anything not listed
// here is a state conflict, including every transition out of a terminal
// state.
var legalTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusCompleted,
		enums.PaymentStatusFailed,
	},
	enums.PaymentStatusCompleted: {
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusRefunded,
	},
	enums.PaymentStatusPartiallyRefunded: {
		enums.PaymentStatusRefunded,
	},
}

func canTransition(from, to enums.PaymentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to enums.PaymentStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment status %q", to))
	}
	if !canTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment cannot move from %s to %s", from, to))
	}
	return nil
}
