package tool

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// WeatherDescriptor describes the builtin mock weather tool.
func WeatherDescriptor() Descriptor {
	return Descriptor{
		Name:        "get_weather",
		Description: "Get the current weather for a location.",
		Category:    "info",
		Params: []Param{
			{Name: "location", Type: "string", Description: "City name, e.g. \"Berlin\".", Required: true},
			{Name: "units", Type: "string", Description: "Either \"celsius\" or \"fahrenheit\". Defaults to celsius."},
		},
	}
}

var weatherConditions = []string{"sunny", "partly cloudy", "overcast", "light rain", "windy"}

// Weather returns deterministic mock weather data derived from the
// location name. Useful for demos and tests without a real backend.
func Weather(_ context.Context, args map[string]any) (any, error) {
	location, _ := args["location"].(string)
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("location must not be empty")
	}
	units, _ := args["units"].(string)
	if units == "" {
		units = "celsius"
	}
	if units != "celsius" && units != "fahrenheit" {
		return nil, fmt.Errorf("units must be celsius or fahrenheit, got %q", units)
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(location)))
	seed := h.Sum32()

	tempC := int(seed%35) - 5 // -5..29
	temp := tempC
	if units == "fahrenheit" {
		temp = tempC*9/5 + 32
	}
	return map[string]any{
		"location":    location,
		"temperature": temp,
		"units":       units,
		"condition":   weatherConditions[seed%uint32(len(weatherConditions))],
		"humidity":    int(seed/7%60) + 30,
	}, nil
}

// RegisterBuiltins adds the builtin tools to a registry.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(CalculatorDescriptor(), Calculator); err != nil {
		return err
	}
	return r.Register(WeatherDescriptor(), Weather)
}
