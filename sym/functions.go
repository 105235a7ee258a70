package sym

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s: argument %v is not a number", name, args[0])
		}
		return f(x), nil
	}
}

// the functions that can appear in potential expressions.
var functions = map[string]govaluate.ExpressionFunction{
	"sin":  unary("sin", math.Sin),
	"cos":  unary("cos", math.Cos),
	"tan":  unary("tan", math.Tan),
	"asin": unary("asin", math.Asin),
	"acos": unary("acos", math.Acos),
	"atan": unary("atan", math.Atan),
	"sinh": unary("sinh", math.Sinh),
	"cosh": unary("cosh", math.Cosh),
	"tanh": unary("tanh", math.Tanh),
	"exp":  unary("exp", math.Exp),
	"log":  unary("log", math.Log),
	"sqrt": unary("sqrt", math.Sqrt),
	"abs":  unary("abs", math.Abs),
}

// IsFunction returns true if name is one of the functions known to
// the expression parser.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}
