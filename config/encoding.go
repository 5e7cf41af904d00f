package config

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Clip files written by older tools are plain 8-bit text in a local
// codepage rather than utf-8. The active charmap is process-wide and
// selected once from the CLI or web layer.
var currentCharMap *charmap.Charmap = charmap.Windows1252

func SetEncoding(name string) error {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				currentCharMap = cm
				return nil
			}
		}
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap
}

// DecodeLegacyText converts clip bytes from the active charmap to
// utf-8.
func DecodeLegacyText(data []byte) ([]byte, error) {
	out, err := currentCharMap.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %v text", currentCharMap)
	}
	return out, nil
}

// EncodeLegacyText converts utf-8 clip bytes into the active charmap
// for tools that cannot read utf-8.
func EncodeLegacyText(data []byte) ([]byte, error) {
	out, err := currentCharMap.NewEncoder().Bytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode %v text", currentCharMap)
	}
	return out, nil
}
