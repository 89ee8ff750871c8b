// Package config loads listing preferences from a JSON file and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/invopop/jsonschema"

	"jitdasm/internal/disasm"
)

const (
	EnvSyntax    = "JITDASM_SYNTAX"
	EnvSeparator = "JITDASM_SEPARATOR"
	EnvColumn    = "JITDASM_COLUMN"
	EnvNoColor   = "JITDASM_NO_COLOR"
)

// Config represents configuration for the jitdasm tool
type Config struct {
	Syntax         string  `json:"syntax,omitempty" jsonschema:"title=Syntax,description=Assembly dialect,enum=intel,enum=gnu,enum=go,default=intel"`
	DigitSeparator *string `json:"digitSeparator,omitempty" jsonschema:"title=Digit Separator,description=Inserted every 4 hex or 3 decimal digits of immediates (empty disables grouping)"`
	OperandColumn  *int    `json:"operandColumn,omitempty" jsonschema:"title=Operand Column,description=Column of the first operand counted from the mnemonic,minimum=0,default=10"`
	ShowBytes      bool    `json:"showBytes,omitempty" jsonschema:"title=Show Bytes,description=Print the raw encoding of each instruction"`
	NoColor        bool    `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable syntax highlighting"`
	PerfMap        string  `json:"perfMap,omitempty" jsonschema:"title=Perf Map,description=Perf map file followed by the watch command"`
	Debug          bool    `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
}

// Load reads path, if not empty, then applies environment overrides.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvSyntax); ok {
		c.Syntax = v
	}
	if v, ok := os.LookupEnv(EnvSeparator); ok {
		c.DigitSeparator = &v
	}
	if v, ok := os.LookupEnv(EnvColumn); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s=%q: want a non-negative integer", EnvColumn, v)
		}
		c.OperandColumn = &n
	}
	if os.Getenv(EnvNoColor) != "" {
		c.NoColor = true
	}
	return nil
}

// Style turns the configuration into a listing style. Unset fields keep
// their defaults.
func (c Config) Style() (disasm.Style, error) {
	st := disasm.DefaultStyle()
	syn, err := disasm.ParseSyntax(c.Syntax)
	if err != nil {
		return st, err
	}
	st.Syntax = syn
	if c.DigitSeparator != nil {
		st.DigitSeparator = *c.DigitSeparator
	}
	if c.OperandColumn != nil {
		if *c.OperandColumn < 0 {
			return st, fmt.Errorf("operandColumn must not be negative")
		}
		st.OperandColumn = *c.OperandColumn
	}
	st.ShowBytes = c.ShowBytes
	return st, nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
