package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads, parses and validates a scenario document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scenarioerrors.NewParseError(path, 0, err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML or JSON scenario document and validates it. source
// names the document in errors.
func Parse(data []byte, source string) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, scenarioerrors.NewParseError(source, 0, errors.New("document is empty"))
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, scenarioerrors.NewParseError(source, extractLine(err), err)
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
