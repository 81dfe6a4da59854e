package scheduler

import (
	"errors"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/contest-hub/contest-hub/internal/domain/contest"
)

// ApprovalPolicy decides whether a contest whose e-voting approval is due may
// be approved automatically. The expression is evaluated against the contest
// fields; an empty expression approves everything that is due.
//
// Example: "state == 'ACTIVE' && days_until_contest <= 14"
type ApprovalPolicy struct {
	expr *govaluate.EvaluableExpression
}

func NewApprovalPolicy(expression string) (*ApprovalPolicy, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return &ApprovalPolicy{}, nil
	}
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, err
	}
	return &ApprovalPolicy{expr: expr}, nil
}

// Allow evaluates the policy for one contest at the given instant.
func (p *ApprovalPolicy) Allow(c *contest.Contest, now time.Time) (bool, error) {
	if p.expr == nil {
		return true, nil
	}
	result, err := p.expr.Evaluate(policyParams(c, now))
	if err != nil {
		return false, err
	}
	allowed, ok := result.(bool)
	if !ok {
		return false, errors.New("approval policy did not evaluate to boolean")
	}
	return allowed, nil
}

func policyParams(c *contest.Contest, now time.Time) map[string]interface{} {
	dueDatePassed := false
	if c.EVotingApprovalDueDate != nil {
		dueDatePassed = !now.Before(*c.EVotingApprovalDueDate)
	}
	return map[string]interface{}{
		"state":              string(c.State),
		"e_voting":           c.EVoting,
		"due_date_set":       c.EVotingApprovalDueDate != nil,
		"due_date_passed":    dueDatePassed,
		"days_until_contest": c.Date.Sub(now).Hours() / 24,
	}
}
