package types

import (
	"encoding/json"
	"log/slog"
)

// Secret is a string type that redacts its value when marshaled to JSON,
// logged, or converted to a string. This prevents accidental leakage of
// sensitive values like access keys in logs, error messages, or config dumps.
type Secret struct {
	value string
}

func NewSecret(value string) Secret {
	return Secret{value: value}
}

func (s Secret) Value() string {
	return s.value
}

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so the raw value never reaches a handler.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

func (s Secret) MarshalJSON() ([]byte, error) {
	if s.value == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}

func (s Secret) IsEmpty() bool {
	return s.value == ""
}
