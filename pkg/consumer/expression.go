package consumer

import (
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/valyala/fasttemplate"
)

const (
	expressionStart = "${"
	expressionEnd   = "}"
)

// ExpressionResolver expands placeholders in fixture metadata.
type ExpressionResolver interface {
	Resolve(expression string) (string, error)
}

// ExpressionResolverFunc adapts a function to ExpressionResolver.
type ExpressionResolverFunc func(expression string) (string, error)

func (f ExpressionResolverFunc) Resolve(expression string) (string, error) {
	return f(expression)
}

// EnvExpressionResolver expands ${name} and ${name:default} placeholders from
// env files, then the process environment.
type EnvExpressionResolver struct {
	values map[string]string
	lookup func(string) (string, bool)
}

// NewEnvExpressionResolver reads envFiles eagerly. Values from later files
// override earlier ones. The process environment is read on every Resolve.
func NewEnvExpressionResolver(envFiles ...string) (*EnvExpressionResolver, error) {
	values := map[string]string{}
	for _, file := range envFiles {
		fileValues, err := godotenv.Read(file)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read env file %s", file)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	return &EnvExpressionResolver{values: values, lookup: os.LookupEnv}, nil
}

func (r *EnvExpressionResolver) Resolve(expression string) (string, error) {
	if !strings.Contains(expression, expressionStart) {
		return expression, nil
	}

	resolved, err := fasttemplate.ExecuteFuncStringWithErr(expression, expressionStart, expressionEnd,
		func(w io.Writer, tag string) (int, error) {
			name, fallback, hasDefault := strings.Cut(tag, ":")
			name = strings.TrimSpace(name)
			if value, ok := r.value(name); ok {
				return w.Write([]byte(value))
			}
			if hasDefault {
				return w.Write([]byte(fallback))
			}
			return 0, errors.Errorf("no value found for '%s'", name)
		})
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve expression %q", expression)
	}
	return resolved, nil
}

func (r *EnvExpressionResolver) value(name string) (string, bool) {
	if value, ok := r.values[name]; ok {
		return value, true
	}
	if r.lookup == nil {
		return "", false
	}
	return r.lookup(name)
}
