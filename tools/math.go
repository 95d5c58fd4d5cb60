package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type BinaryInput struct {
	A float64 `json:"a" jsonschema_description:"The first number."`
	B float64 `json:"b" jsonschema_description:"The second number."`
}

var BinaryInputSchema = GenerateSchema[BinaryInput]()

// MathDefinitions returns add, subtract, multiply and divide.
// Division by zero yields +Inf instead of an error.
func MathDefinitions() []ToolDefinition {
	return []ToolDefinition{
		binaryTool("add", "Adds two numbers and returns the sum of a and b.", func(a, b float64) float64 { return a + b }),
		binaryTool("subtract", "Subtracts b from a and returns the difference.", func(a, b float64) float64 { return a - b }),
		binaryTool("multiply", "Multiplies two numbers and returns the product of a and b.", func(a, b float64) float64 { return a * b }),
		binaryTool("divide", "Divides a by b and returns the quotient. Dividing by zero returns +Inf.", func(a, b float64) float64 {
			if b == 0 {
				return math.Inf(1)
			}
			return a / b
		}),
	}
}

func binaryTool(name, description string, op func(a, b float64) float64) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: BinaryInputSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				A *float64 `json:"a"`
				B *float64 `json:"b"`
			}
			if err := decodeInput(input, &in); err != nil {
				return "", err
			}
			if in.A == nil || in.B == nil {
				return "", fmt.Errorf("both a and b are required")
			}
			return formatNumber(op(*in.A, *in.B)), nil
		},
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
