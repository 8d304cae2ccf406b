// Package rules evaluates action visibility constraints against object
// metadata. A rule is a CUE struct; an object satisfies it when the rule
// unified with the object metadata is concrete and free of conflicts, and
// every field the rule names is present in the metadata.
//
//	id_folder: 1 | 2
//	status:    >0
//	title:     =~"^News"
//
// Rules are data, never code: nothing in a rule can reach outside the
// metadata it is unified with.
package rules

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ErrNotSatisfied is returned by Check when the metadata violates the rule.
var ErrNotSatisfied = errors.New("rule not satisfied")

// Rule is a compiled constraint. It is safe for concurrent use.
type Rule struct {
	src    string
	fields []string

	// cue values are not safe for concurrent use
	mu    sync.Mutex
	ctx   *cue.Context
	value cue.Value
}

// Compile parses a rule. The source must evaluate to a struct.
func Compile(src string) (*Rule, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("allow_if"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile rule: %s", cueerrors.Details(err, nil))
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, fmt.Errorf("compile rule: expected a struct, got %s", v.IncompleteKind())
	}
	it, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("compile rule: %w", err)
	}
	var fields []string
	for it.Next() {
		fields = append(fields, it.Selector().Unquoted())
	}
	return &Rule{src: src, fields: fields, ctx: ctx, value: v}, nil
}

func (r *Rule) String() string { return r.src }

// Fields lists the top-level fields the rule constrains.
func (r *Rule) Fields() []string { return append([]string(nil), r.fields...) }

// Check returns nil when meta satisfies the rule, otherwise an error wrapping
// ErrNotSatisfied that names the offending field.
func (r *Rule) Check(meta map[string]any) error {
	for _, f := range r.fields {
		if _, ok := meta[f]; !ok {
			return fmt.Errorf("%w: %s is missing", ErrNotSatisfied, f)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data := r.ctx.Encode(normalize(meta))
	if err := data.Err(); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := r.value.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotSatisfied, cueerrors.Details(err, nil))
	}
	return nil
}

// Allows reports whether meta satisfies the rule.
func (r *Rule) Allows(meta map[string]any) bool {
	return r.Check(meta) == nil
}

// normalize turns integral JSON numbers into ints so they unify with int
// constraints.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}
