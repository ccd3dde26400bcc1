package payment_out

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultIGTFPolicy charges IGTF on every payment.
const DefaultIGTFPolicy = "true"

// IGTFPolicy decides whether a bill's IGTF amount counts towards net payable for
// a payment. It is a CEL boolean expression over `method` and `currency`, e.g.
//
//	method in ['CASH_USD', 'ZELLE', 'TRANSFER_USD']
type IGTFPolicy struct {
	expr    string
	program cel.Program
}

// NewIGTFPolicy compiles expr. An empty expression means DefaultIGTFPolicy.
func NewIGTFPolicy(expr string) (*IGTFPolicy, error) {
	if expr == "" {
		expr = DefaultIGTFPolicy
	}

	env, err := cel.NewEnv(
		cel.Variable("method", cel.StringType),
		cel.Variable("currency", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("igtf policy env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile igtf policy %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("igtf policy %q must return bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("igtf policy program: %w", err)
	}
	return &IGTFPolicy{expr: expr, program: prg}, nil
}

// MustIGTFPolicy is NewIGTFPolicy that panics. Use only for constants and tests.
func MustIGTFPolicy(expr string) *IGTFPolicy {
	p, err := NewIGTFPolicy(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *IGTFPolicy) String() string {
	return p.expr
}

// Applies evaluates the policy for a payment.
func (p *IGTFPolicy) Applies(method Method, currency string) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{
		"method":   string(method),
		"currency": currency,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate igtf policy: %w", err)
	}
	applies, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("igtf policy returned %T", out.Value())
	}
	return applies, nil
}
