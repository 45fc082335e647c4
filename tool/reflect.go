package tool

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON Schema for the arguments struct T.
//
// Field names come from json tags; a field without omitempty is required.
// Descriptions and constraints use invopop/jsonschema tags:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" jsonschema:"description=City name"`
//	    Unit     string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
//	}
func SchemaFor[T any]() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	schema := r.Reflect(&zero)
	schema.Version = ""
	return json.Marshal(schema)
}

// MustSchemaFor is like SchemaFor but panics on error.
func MustSchemaFor[T any]() json.RawMessage {
	s, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Func builds a Tool whose parameter schema is reflected from T and whose
// handler decodes the call arguments into T.
// Panics if schema generation fails.
//
// Example:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("getWeather", "Get the weather for a city",
//	        func(ctx context.Context, args WeatherArgs) (any, error) {
//	            return lookup(args.Location), nil
//	        }),
//	)
func Func[T any](name, description string, fn TypedHandler[T]) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  MustSchemaFor[T](),
		Handler:     typed(name, fn),
	}
}

func typed[T any](name string, fn TypedHandler[T]) Handler {
	return func(ctx context.Context, call Call) (any, error) {
		raw := call.ArgsRaw
		if raw == "" {
			raw = "{}"
		}
		var args T
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, &ErrInvalidArguments{Name: name, Err: err}
		}
		return fn(ctx, args)
	}
}
