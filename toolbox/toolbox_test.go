package toolbox

import (
	"context"
	"testing"

	ai "github.com/spetersoncode/llmgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, name, args string, reg interface {
	Run(context.Context, ai.ToolCall) ai.ToolResult
}) ai.ToolResult {
	t.Helper()
	return reg.Run(context.Background(), ai.ToolCall{ID: "call_1", Name: name, Arguments: args})
}

func TestGatewaySet(t *testing.T) {
	r := GatewayRegistry()

	t.Run("weather defaults to fahrenheit", func(t *testing.T) {
		res := run(t, "get_weather", `{"location":"Paris"}`, r)
		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"result":"Weather in Paris is sunny and 75F!"}`, res.Content)
	})

	t.Run("weather in celsius", func(t *testing.T) {
		res := run(t, "get_weather", `{"location":"Paris","unit":"C"}`, r)
		assert.JSONEq(t, `{"result":"Weather in Paris is sunny and 24C!"}`, res.Content)
	})

	t.Run("divide", func(t *testing.T) {
		res := run(t, "divide", `{"dividend":10,"divisor":4}`, r)
		assert.JSONEq(t, `{"result":2.5}`, res.Content)
	})

	t.Run("whole quotient keeps a decimal point", func(t *testing.T) {
		res := run(t, "divide", `{"dividend":10,"divisor":2}`, r)
		assert.False(t, res.IsError)
		assert.Equal(t, `{"result":5.0}`, res.Content)

		res = run(t, "divide", `{"dividend":-9,"divisor":3}`, r)
		assert.Equal(t, `{"result":-3.0}`, res.Content)
	})

	t.Run("quotient overflow", func(t *testing.T) {
		res := run(t, "divide", `{"dividend":1e308,"divisor":1e-10}`, r)
		assert.True(t, res.IsError)
	})

	t.Run("divide by zero", func(t *testing.T) {
		res := run(t, "divide", `{"dividend":1,"divisor":0}`, r)
		assert.True(t, res.IsError)
		assert.JSONEq(t, `{"error":"Cannot divide by zero"}`, res.Content)
	})

	t.Run("unknown tool", func(t *testing.T) {
		res := run(t, "get_stock", `{}`, r)
		assert.True(t, res.IsError)
		assert.JSONEq(t, `{"error":"Unknown tool: get_stock"}`, res.Content)
	})
}

func TestChatSet(t *testing.T) {
	r := ChatRegistry()

	tests := []struct {
		name, tool, args, want string
	}{
		{"weather default unit", "get_weather", `{"location":"Boston, MA"}`, "The weather in Boston, MA is 72°F and sunny."},
		{"weather celsius", "get_weather", `{"location":"Oslo","unit":"celsius"}`, "The weather in Oslo is 72°C and sunny."},
		{"weather missing location", "get_weather", `{}`, "The weather in Unknown is 72°F and sunny."},
		{"calculate", "calculate", `{"expression":"2 + 2"}`, "Result: 4"},
		{"calculate precedence", "calculate", `{"expression":"10 * 5 - 3"}`, "Result: 47"},
		{"calculate division", "calculate", `{"expression":"10 / 4"}`, "Result: 2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.tool, tt.args, r)
			assert.False(t, res.IsError)
			assert.Equal(t, tt.want, res.Content)
		})
	}

	t.Run("calculate error is text", func(t *testing.T) {
		res := run(t, "calculate", `{"expression":"os.Exit(1)"}`, r)
		assert.False(t, res.IsError)
		assert.Contains(t, res.Content, "Error calculating:")
	})

	t.Run("calculate empty", func(t *testing.T) {
		res := run(t, "calculate", `{"expression":"  "}`, r)
		assert.Equal(t, "Error calculating: empty expression", res.Content)
	})
}

func TestForecastSet(t *testing.T) {
	r := ForecastRegistry()

	res := run(t, "get_current_temperature", `{"location":"San Francisco, CA","unit":"celsius"}`, r)
	assert.JSONEq(t, `{"temperature":68,"unit":"celsius"}`, res.Content)

	res = run(t, "get_current_temperature", `{"location":"San Francisco, CA"}`, r)
	assert.JSONEq(t, `{"temperature":68,"unit":"fahrenheit"}`, res.Content)

	res = run(t, "get_rain_probability", `{"location":"San Francisco, CA"}`, r)
	assert.JSONEq(t, `{"probability":15,"description":"Low chance of rain"}`, res.Content)
}

func TestProbeSet(t *testing.T) {
	res := run(t, "test_function", `{"message":"ping"}`, ProbeRegistry())
	assert.Equal(t, "ping", res.Content)
}

func TestAll(t *testing.T) {
	r := AllRegistry()
	assert.Equal(t, []string{
		"calculate", "divide", "get_current_temperature",
		"get_rain_probability", "get_weather", "test_function",
	}, r.Names())

	tl, ok := r.GetTool("get_weather")
	require.True(t, ok)
	assert.Equal(t, "Get the current weather for a location", tl.Description)
}

func TestChatWeatherUnit(t *testing.T) {
	t.Run("multibyte unit keeps its first rune", func(t *testing.T) {
		got, err := ChatWeather(context.Background(), ChatWeatherArgs{Location: "Kyiv", Unit: "цельсій"})
		require.NoError(t, err)
		assert.Equal(t, "The weather in Kyiv is 72°Ц and sunny.", got)
	})

	t.Run("single letter unit", func(t *testing.T) {
		got, err := ChatWeather(context.Background(), ChatWeatherArgs{Location: "Oslo", Unit: "c"})
		require.NoError(t, err)
		assert.Equal(t, "The weather in Oslo is 72°C and sunny.", got)
	})
}
