// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// script is the list of actions the mock sends to every router after
// that router's document reports WorkbookOpen.
type script []protocol.Action

// loadScript reads a JSON array of actions. Comments and trailing
// commas are allowed. An action without a workbook is addressed to
// whichever document opened.
func loadScript(path string) (script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScript(data)
}

func parseScript(data []byte) (script, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var actions script
	if err := decoder.Decode(&actions); err != nil {
		return nil, fmt.Errorf("parsing action script: %w", err)
	}
	for i := range actions {
		probe := actions[i]
		if probe.Workbook == "" {
			probe.Workbook = "probe"
		}
		if err := probe.Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return actions, nil
}

// forDocument returns the actions addressed to workbook, with empty
// workbooks filled in.
func (s script) forDocument(workbook string) []*protocol.Action {
	actions := make([]*protocol.Action, 0, len(s))
	for _, action := range s {
		if action.Workbook == "" {
			action.Workbook = workbook
		}
		if action.Workbook != workbook {
			continue
		}
		actions = append(actions, &action)
	}
	return actions
}
