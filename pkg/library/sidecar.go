package library

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"formarter/compliance/pkg/checklist"
)

// sidecar is the optional YAML metadata stored next to a document file:
//
//	name: Motion for TRO (draft 3)
//	context:
//	  is_ex_parte: true
//	  is_urgent: false
//	  has_case_profile: true
type sidecar struct {
	Name    string             `yaml:"name"`
	Context *checklist.Context `yaml:"context"`
}

func readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta sidecar
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&meta); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &meta, nil
}
