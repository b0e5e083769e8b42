package types

import "log/slog"

const redacted = "***REDACTED***"

// SecretString holds the JWT signing secret, the OMDb API key and the
// database URL. Every formatting path (fmt, encoding/json, slog) prints a
// placeholder; Unmask is the only way to read the value.
type SecretString string

func (s SecretString) String() string { return redacted }
func (s SecretString) GoString() string { return redacted }

// LogValue keeps slog from resolving the underlying string.
func (s SecretString) LogValue() slog.Value { return slog.StringValue(redacted) }

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Unmask returns the plaintext. Only signing, outbound requests and driver
// connection strings should call it.
func (s SecretString) Unmask() string { return string(s) }

func (s SecretString) IsZero() bool { return s == "" }
