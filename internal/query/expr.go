package query

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/heron/internal/domain"
)

// Predicate reports whether a transaction matches a compiled expression.
type Predicate func(tx *domain.Transaction) (bool, error)

// ExprCompiler compiles CEL filter expressions over transaction fields and
// keeps a bounded set of compiled programs.
//
// Available variables: amount (double), tx_type, merchant_city,
// merchant_state (string), is_fraud, client_id, merchant_id, mcc (int).
type ExprCompiler struct {
	env      *cel.Env
	maxCache int

	mu       sync.Mutex
	programs map[string]cel.Program
}

var defaultCompiler = sync.OnceValues(func() (*ExprCompiler, error) {
	return NewExprCompiler(128)
})

// NewExprCompiler creates a compiler caching up to maxCache programs.
func NewExprCompiler(maxCache int) (*ExprCompiler, error) {
	if maxCache <= 0 {
		maxCache = 128
	}

	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("is_fraud", cel.IntType),
		cel.Variable("client_id", cel.IntType),
		cel.Variable("merchant_id", cel.IntType),
		cel.Variable("mcc", cel.IntType),
		cel.Variable("merchant_state", cel.StringType),
		cel.Variable("merchant_city", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ExprCompiler{
		env:      env,
		maxCache: maxCache,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile returns a predicate for expr. The expression must be boolean.
func (c *ExprCompiler) Compile(expr string) (Predicate, error) {
	program, err := c.program(expr)
	if err != nil {
		return nil, err
	}

	return func(tx *domain.Transaction) (bool, error) {
		out, _, err := program.Eval(map[string]any{
			"amount":         tx.Amount,
			"tx_type":        tx.Type,
			"is_fraud":       int64(tx.IsFraud),
			"client_id":      tx.ClientID,
			"merchant_id":    tx.MerchantID,
			"mcc":            int64(tx.MCC),
			"merchant_state": tx.MerchantState,
			"merchant_city":  tx.MerchantCity,
		})
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
		b, ok := out.(types.Bool)
		return ok && bool(b), nil
	}, nil
}

func (c *ExprCompiler) program(expr string) (cel.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.programs[expr]; ok {
		return p, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidExpression, ast.OutputType())
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	if len(c.programs) >= c.maxCache {
		for k := range c.programs {
			delete(c.programs, k)
			break
		}
	}
	c.programs[expr] = program
	return program, nil
}

// Cached returns the number of compiled programs held.
func (c *ExprCompiler) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}
