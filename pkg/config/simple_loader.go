package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML document into config. Fields absent from the file keep
// the values already in config. ${VAR} and ${VAR:-default} references are
// expanded from the environment before parsing.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from --config
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), config); err != nil {
		return fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}
	return nil
}

// expandEnv replaces ${NAME} and ${NAME:-default}. A bare $ is left alone so
// DSN passwords survive, and an unterminated reference is copied verbatim.
func expandEnv(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for {
		start := strings.Index(content, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(content[start:], '}')
		if end < 0 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(lookupRef(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

func lookupRef(ref string) string {
	name, def, hasDefault := strings.Cut(ref, ":-")
	if v, ok := os.LookupEnv(name); ok && (v != "" || !hasDefault) {
		return v
	}
	return def
}
