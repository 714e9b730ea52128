// Package tool registers tools for models to call and executes their calls.
//
// Arguments are declared as structs. The schema sent to the model is reflected
// from json, desc, required and enum tags:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" desc:"City name" required:"true"`
//	    Unit     string `json:"unit" enum:"celsius,fahrenheit"`
//	}
//
//	registry := tool.NewRegistry(tool.WithErrorFormat(tool.JSONErrors)).Add(
//	    tool.Func("get_weather", "Get current weather",
//	        func(ctx context.Context, args WeatherArgs) (string, error) {
//	            return tool.JSONResult(map[string]any{"location": args.Location, "temp": 72})
//	        }),
//	)
//
// [Registry.Run] never fails: unknown tools and handler errors both come back as
// results with IsError set, ready to be sent to the model.
package tool
