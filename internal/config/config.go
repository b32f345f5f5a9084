// Package config loads toolbridge configuration files.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
// Both formats use the JSON field names of the pkg/types structures.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrEmptyFile is returned when a configuration file has no content.
var ErrEmptyFile = errors.New("configuration file is empty")

// serverFile is the shape of a server file holding several servers.
type serverFile struct {
	Servers []types.RegisterServerInput `json:"servers"`
}

// toolFile is the shape of a tool catalog file.
type toolFile struct {
	Tools []types.Tool `json:"tools"`
}

// LoadServers reads MCP server definitions from path.
// The file holds either a single server object, a list of servers, or an object with a "servers" list.
func LoadServers(fs afero.Fs, path string) ([]types.RegisterServerInput, error) {
	raw, err := readJSON(fs, path)
	if err != nil {
		return nil, err
	}

	var servers []types.RegisterServerInput
	switch {
	case isList(raw):
		err = json.Unmarshal(raw, &servers)
	case hasKey(raw, "servers"):
		var f serverFile
		err = json.Unmarshal(raw, &f)
		servers = f.Servers
	default:
		var s types.RegisterServerInput
		err = json.Unmarshal(raw, &s)
		servers = []types.RegisterServerInput{s}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode servers in %s: %w", path, err)
	}

	for i, s := range servers {
		if s.Name == "" {
			return nil, fmt.Errorf("server #%d in %s has no name", i+1, path)
		}
	}
	return servers, nil
}

// LoadTools reads a tool catalog from path.
// The file holds either a list of tools or an object with a "tools" list.
// Tools without an id get the canonical `<server>__<name>` id.
func LoadTools(fs afero.Fs, path string) ([]types.Tool, error) {
	raw, err := readJSON(fs, path)
	if err != nil {
		return nil, err
	}

	var tools []types.Tool
	if isList(raw) {
		err = json.Unmarshal(raw, &tools)
	} else {
		var f toolFile
		err = json.Unmarshal(raw, &f)
		tools = f.Tools
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode tools in %s: %w", path, err)
	}

	for i := range tools {
		if tools[i].Name == "" {
			return nil, fmt.Errorf("tool #%d in %s has no name", i+1, path)
		}
		if tools[i].ID == "" {
			tools[i].ID = tools[i].Name
			if tools[i].ServerName != "" {
				tools[i].ID = tools[i].ServerName + "__" + tools[i].Name
			}
		}
		if tools[i].InputSchema == nil {
			tools[i].InputSchema = types.ToolInputSchema{}
		}
	}
	return tools, nil
}

// readJSON reads path and returns its content as JSON, converting YAML when needed.
func readJSON(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", path)
		}
		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML in %s: %w", path, err)
	}
	return out, nil
}

func isList(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

func hasKey(raw []byte, key string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}
