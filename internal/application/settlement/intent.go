package settlement

import (
	"errors"

	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// IntentKind classifies a payment intent. The tagged union is built exactly
// once at the API boundary; the orchestrator never re-infers it.
type IntentKind int

const (
	// KindGeneral is a plain credit/debit with no plan or metal attached.
	KindGeneral IntentKind = iota
	// KindInstallment posts one installment to a plan.
	KindInstallment
	// KindPurchase buys metal at the execution-time rate.
	KindPurchase
)

// Intent is one classified payment intent.
type Intent struct {
	Kind     IntentKind
	Amount   decimal.Decimal
	Plan     *plans.Ref       // KindInstallment
	Metal    domain.MetalType // KindPurchase
	Category string           // KindGeneral; defaults to CREDIT
	Payload  datatypes.JSON   // raw gateway payload, stored verbatim on the record
}

var errInvalidAmount = errors.New("invalid amount")

// NewIntent classifies raw request fields. Precedence is mutually exclusive:
// a plan reference always wins over a metal reference.
func NewIntent(amount decimal.Decimal, planID *uuid.UUID, planType domain.PlanType, metal domain.MetalType, category string) (Intent, error) {
	if !amount.IsPositive() {
		return Intent{}, errInvalidAmount
	}

	if planID != nil && *planID != uuid.Nil {
		if !planType.Valid() {
			return Intent{}, plans.ErrInvalidPlanType
		}
		return Intent{
			Kind:   KindInstallment,
			Amount: amount,
			Plan:   &plans.Ref{ID: *planID, Type: planType},
		}, nil
	}

	if metal != "" {
		if !metal.Valid() {
			return Intent{}, errors.New("invalid metal type")
		}
		return Intent{Kind: KindPurchase, Amount: amount, Metal: metal}, nil
	}

	if category == "" {
		category = domain.CategoryCredit
	}
	if category != domain.CategoryCredit && category != domain.CategoryDebit {
		return Intent{}, errors.New("invalid category")
	}
	return Intent{Kind: KindGeneral, Amount: amount, Category: category}, nil
}
