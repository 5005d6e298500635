package authz

import (
	_ "embed"
	"fmt"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Subject says which record an action must resolve before its rule runs.
type Subject string

const (
	SubjectNone           Subject = "none"
	SubjectChore          Subject = "chore"
	SubjectPerson         Subject = "person"
	SubjectOptionalPerson Subject = "optional_person"
)

type ruleDoc struct {
	Rules []struct {
		Action  Action  `yaml:"action"`
		Subject Subject `yaml:"subject"`
		Allow   string  `yaml:"allow"`
	} `yaml:"rules"`
}

type rule struct {
	subject Subject
	expr    string
	program cel.Program
}

var factNames = []string{"admin_match", "assignee_match", "self_match", "admins_exist"}

// compileRules parses a policy document and compiles every rule once.
func compileRules(data []byte) (map[Action]rule, error) {
	var doc ruleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("policy has no rules")
	}

	opts := make([]cel.EnvOption, 0, len(factNames))
	for _, name := range factNames {
		opts = append(opts, cel.Variable(name, cel.BoolType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	rules := make(map[Action]rule, len(doc.Rules))
	for _, r := range doc.Rules {
		if _, dup := rules[r.Action]; dup {
			return nil, fmt.Errorf("duplicate rule for %q", r.Action)
		}
		switch r.Subject {
		case SubjectNone, SubjectChore, SubjectPerson, SubjectOptionalPerson:
		default:
			return nil, fmt.Errorf("rule %q: unknown subject %q", r.Action, r.Subject)
		}

		ast, issues := env.Compile(r.Allow)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Action, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q: expression must be boolean, got %v", r.Action, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: build program: %w", r.Action, err)
		}
		rules[r.Action] = rule{subject: r.Subject, expr: r.Allow, program: prg}
	}
	return rules, nil
}

func (r rule) eval(f facts) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"admin_match":    f.adminMatch,
		"assignee_match": f.assigneeMatch,
		"self_match":     f.selfMatch,
		"admins_exist":   f.adminsExist,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", r.expr, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T", r.expr, out.Value())
	}
	return allowed, nil
}
