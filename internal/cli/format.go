package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// encodePackages renders pkgs in format. Text is one NEVRA per line, like
// rpm -q.
func encodePackages(format string, pkgs []rpm.Package) ([]byte, error) {
	if pkgs == nil {
		pkgs = []rpm.Package{}
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(pkgs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}

		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(pkgs)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}

		return data, nil
	default:
		var buf []byte
		for _, p := range pkgs {
			buf = append(buf, p.NEVRA()...)
			buf = append(buf, '\n')
		}

		return buf, nil
	}
}

func printPackages(o *IO, format string, pkgs []rpm.Package) error {
	data, err := encodePackages(format, pkgs)
	if err != nil {
		return err
	}

	_, err = o.Write(data)

	return err
}
