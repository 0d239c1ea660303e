package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers
func Component(name string) Field {
	return String("component", name)
}

func NetworkID(id string) Field {
	return String("network_id", id)
}

func ConnectorID(id string) Field {
	return String("connector_id", id)
}

func FeatureID(id string) Field {
	return String("feature_id", id)
}

// Variant names the kind of network being resolved.
func Variant(v string) Field {
	return String("variant", v)
}

func Tolerance(tol float64, unit string) Field {
	return Field{Key: "tolerance", Value: map[string]any{"value": tol, "unit": unit}}
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
