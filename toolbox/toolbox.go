// Package toolbox holds the stub tools the demo apps offer to models.
//
// Each set mirrors the tools of one front end, so the same prompt behaves the
// same whether it comes from the web app, the CLI chat or the examples.
package toolbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/spetersoncode/llmgate/tool"
	"github.com/tidwall/sjson"
)

// GatewayWeatherArgs are the arguments of the web app's get_weather.
type GatewayWeatherArgs struct {
	Location string `json:"location" desc:"The city or location to get weather for" required:"true"`
	Unit     string `json:"unit" desc:"Temperature unit, either 'C' or 'F'"`
}

// DivideArgs are the arguments of divide.
type DivideArgs struct {
	Dividend float64 `json:"dividend" desc:"The number to be divided" required:"true"`
	Divisor  float64 `json:"divisor" desc:"The number to divide by" required:"true"`
}

// ErrDivideByZero is returned by divide for a zero divisor.
var ErrDivideByZero = errors.New("Cannot divide by zero")

// GatewayWeather reports canned weather. Fahrenheit is the default unit.
func GatewayWeather(_ context.Context, args GatewayWeatherArgs) (string, error) {
	unit := args.Unit
	if unit == "" {
		unit = "F"
	}
	temp := 24
	if unit == "F" {
		temp = 75
	}
	return tool.JSONResult(fmt.Sprintf("Weather in %s is sunny and %d%s!", args.Location, temp, unit))
}

// Divide divides two numbers. The quotient is always written as a float,
// so 10/2 gives {"result": 5.0}.
func Divide(_ context.Context, args DivideArgs) (string, error) {
	if args.Divisor == 0 {
		return "", ErrDivideByZero
	}
	q := args.Dividend / args.Divisor
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return "", fmt.Errorf("result of %g / %g is out of range", args.Dividend, args.Divisor)
	}
	num := strconv.FormatFloat(q, 'f', -1, 64)
	if !strings.Contains(num, ".") {
		num += ".0"
	}
	return sjson.SetRaw("{}", "result", num)
}

// Gateway is the web app tool set. Results and errors are JSON objects.
func Gateway() []tool.Registration {
	return []tool.Registration{
		tool.Func("get_weather", "Get weather information for a location", GatewayWeather),
		tool.Func("divide", "Divide two numbers", Divide),
	}
}

// ChatWeatherArgs are the arguments of the CLI chat's get_weather.
type ChatWeatherArgs struct {
	Location string `json:"location" desc:"The city and state, e.g., San Francisco, CA" required:"true"`
	Unit     string `json:"unit" desc:"The temperature unit" enum:"celsius,fahrenheit"`
}

// CalculateArgs are the arguments of calculate.
type CalculateArgs struct {
	Expression string `json:"expression" desc:"The mathematical expression to evaluate, e.g., '2 + 2' or '10 * 5'" required:"true"`
}

// ChatWeather reports a fixed 72 degrees in the requested unit.
func ChatWeather(_ context.Context, args ChatWeatherArgs) (string, error) {
	location := args.Location
	if location == "" {
		location = "Unknown"
	}
	unit := args.Unit
	if unit == "" {
		unit = "fahrenheit"
	}
	return fmt.Sprintf("The weather in %s is 72°%s and sunny.", location, strings.ToUpper(string([]rune(unit)[:1]))), nil
}

// Calculate evaluates an arithmetic expression with no variables or functions in scope.
// Failures are reported in the result text rather than as an error.
func Calculate(_ context.Context, args CalculateArgs) (string, error) {
	v, err := Eval(args.Expression)
	if err != nil {
		return fmt.Sprintf("Error calculating: %v", err), nil
	}
	return fmt.Sprintf("Result: %v", v), nil
}

// Eval evaluates expression in an empty environment.
func Eval(expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New("empty expression")
	}
	program, err := expr.Compile(expression, expr.Env(map[string]any{}))
	if err != nil {
		return nil, err
	}
	return expr.Run(program, map[string]any{})
}

// Chat is the CLI chat tool set. Results are plain text.
func Chat() []tool.Registration {
	return []tool.Registration{
		tool.Func("get_weather", "Get the current weather for a location", ChatWeather),
		tool.Func("calculate", "Perform a mathematical calculation", Calculate),
	}
}

// TemperatureArgs are the arguments of get_current_temperature.
type TemperatureArgs struct {
	Location string `json:"location" desc:"The city and state, e.g., San Francisco, CA" required:"true"`
	Unit     string `json:"unit" desc:"The temperature unit to use" enum:"celsius,fahrenheit" required:"true"`
}

// RainArgs are the arguments of get_rain_probability.
type RainArgs struct {
	Location string `json:"location" desc:"The city and state, e.g., San Francisco, CA" required:"true"`
}

// CurrentTemperature reports 68 degrees in the requested unit.
func CurrentTemperature(_ context.Context, args TemperatureArgs) (string, error) {
	unit := args.Unit
	if unit == "" {
		unit = "fahrenheit"
	}
	return tool.JSONResult(map[string]any{"temperature": 68, "unit": unit})
}

// RainProbability reports a low chance of rain.
func RainProbability(_ context.Context, _ RainArgs) (string, error) {
	return tool.JSONResult(map[string]any{"probability": 15, "description": "Low chance of rain"})
}

// Forecast is the tool-calling example set.
func Forecast() []tool.Registration {
	return []tool.Registration{
		tool.Func("get_current_temperature", "Get the current temperature for a specific location", CurrentTemperature),
		tool.Func("get_rain_probability", "Get the probability of rain for a specific location", RainProbability),
	}
}

// ProbeArgs are the arguments of test_function.
type ProbeArgs struct {
	Message string `json:"message" desc:"A test message" required:"true"`
}

// Probe is the capability matrix set: one echo tool a model can be forced to call.
func Probe() []tool.Registration {
	return []tool.Registration{
		tool.Func("test_function", "A simple test function", func(_ context.Context, args ProbeArgs) (string, error) {
			return args.Message, nil
		}),
	}
}

// All returns every distinct tool, once each. The CLI chat's get_weather
// shadows the web app's under the same name.
func All() []tool.Registration {
	seen := make(map[string]bool)
	var out []tool.Registration
	for _, set := range [][]tool.Registration{Chat(), Gateway(), Forecast(), Probe()} {
		for _, reg := range set {
			if seen[reg.Tool.Name] {
				continue
			}
			seen[reg.Tool.Name] = true
			out = append(out, reg)
		}
	}
	return out
}

// GatewayRegistry returns a registry of the Gateway set rendering errors as JSON.
func GatewayRegistry(opts ...tool.Option) *tool.Registry {
	opts = append([]tool.Option{tool.WithErrorFormat(tool.JSONErrors)}, opts...)
	return tool.NewRegistry(opts...).Add(Gateway()...)
}

// ChatRegistry returns a registry of the Chat set.
func ChatRegistry(opts ...tool.Option) *tool.Registry {
	return tool.NewRegistry(opts...).Add(Chat()...)
}

// ForecastRegistry returns a registry of the Forecast set rendering errors as JSON.
func ForecastRegistry(opts ...tool.Option) *tool.Registry {
	opts = append([]tool.Option{tool.WithErrorFormat(tool.JSONErrors)}, opts...)
	return tool.NewRegistry(opts...).Add(Forecast()...)
}

// ProbeRegistry returns a registry of the Probe set.
func ProbeRegistry(opts ...tool.Option) *tool.Registry {
	return tool.NewRegistry(opts...).Add(Probe()...)
}

// AllRegistry returns a registry holding All.
func AllRegistry(opts ...tool.Option) *tool.Registry {
	return tool.NewRegistry(opts...).Add(All()...)
}
