package gate

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/zero-day-ai/devdefend/finding"
)

// DefaultPolicyExpr is the CEL form of the rule applied by Evaluate.
const DefaultPolicyExpr = "max_severity >= threshold"

// Policy is a compiled CEL expression deciding whether one file fails the
// batch. The expression sees the variables file (string), count (int),
// max_severity (int) and threshold (int) and must yield a bool.
type Policy struct {
	expr string
	prg  cel.Program
}

// CompilePolicy parses and type-checks expr.
func CompilePolicy(expr string) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("file", cel.StringType),
		cel.Variable("count", cel.IntType),
		cel.Variable("max_severity", cel.IntType),
		cel.Variable("threshold", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile policy %q: %w", expr, iss.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("policy %q must evaluate to bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}

	return &Policy{expr: expr, prg: prg}, nil
}

// MustCompilePolicy is like CompilePolicy but panics on error.
func MustCompilePolicy(expr string) *Policy {
	p, err := CompilePolicy(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the policy expression.
func (p *Policy) String() string {
	return p.expr
}

// Fails reports whether the policy fails the given file summary.
func (p *Policy) Fails(fs FileSummary, threshold int) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"file":         fs.File,
		"count":        int64(fs.Count),
		"max_severity": int64(fs.MaxSeverity),
		"threshold":    int64(threshold),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate policy for %s: %w", fs.File, err)
	}

	failed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy for %s returned %T, want bool", fs.File, out.Value())
	}
	return failed, nil
}

// EvaluatePolicy is Evaluate with the failure rule replaced by policy. A nil
// policy behaves like Evaluate.
func EvaluatePolicy(perFile map[string][]finding.Finding, threshold int, policy *Policy) (Result, error) {
	if policy == nil {
		return Evaluate(perFile, threshold), nil
	}

	res := summarize(perFile, threshold)
	for _, fs := range res.Files {
		failed, err := policy.Fails(fs, threshold)
		if err != nil {
			return Result{}, err
		}
		if failed {
			res.Failed = true
			break
		}
	}
	return res, nil
}
