package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// SaveDirectory updates the directory section in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveDirectory(configPath string, dir DirectoryConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	dirNode := buildDirectoryNode(dir)

	if doc.Kind == 0 {
		// Empty or new file
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "directory"},
						dirNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "directory" {
					root.Content[i+1] = dirNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "directory"},
					dirNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// RegisterAddress adds an address to the named directory family and saves.
// Family is "collections", "currencies", or "multiassets". Registering an
// already-present address is a no-op.
func RegisterAddress(configPath string, dir DirectoryConfig, family, address string) (DirectoryConfig, error) {
	var list *[]string
	switch family {
	case "collections":
		list = &dir.Collections
	case "currencies":
		list = &dir.Currencies
	case "multiassets":
		list = &dir.MultiAssets
	default:
		return dir, fmt.Errorf("unknown collaborator family %q", family)
	}

	if slices.Contains(*list, address) {
		return dir, nil
	}
	*list = append(*list, address)

	if err := SaveDirectory(configPath, dir); err != nil {
		return dir, err
	}
	return dir, nil
}

// buildDirectoryNode creates a yaml.Node representing the directory mapping.
func buildDirectoryNode(dir DirectoryConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendList := func(key string, values []string) {
		if len(values) == 0 {
			return
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Content: make([]*yaml.Node, 0, len(values))}
		for _, v := range values {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			seq,
		)
	}
	appendList("collections", dir.Collections)
	appendList("currencies", dir.Currencies)
	appendList("multiassets", dir.MultiAssets)
	return node
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".trellis.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
