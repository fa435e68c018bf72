package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands environment variables in YAML content using Go templates.
// Uses {{.VAR_NAME}} syntax so literal $ characters in prompts and bias text
// are left alone.
//
// Examples:
//   - {{.GEMINI_API_KEY}} → value of GEMINI_API_KEY
//   - {{.HOST}}:{{.PORT}} → both variables expanded
//   - bias: "costs $5" → preserved literally
//
// Missing variables expand to empty string. Content that is not a valid
// template is returned unchanged so the YAML parser can report on it.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		// Split only on the first = so values may contain =
		if key, value, ok := strings.Cut(env, "="); ok && key != "" {
			envMap[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap); err != nil {
		return data
	}
	return buf.Bytes()
}
