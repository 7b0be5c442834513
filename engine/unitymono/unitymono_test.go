// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unitymono

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

func TestBackendAndInitialize(t *testing.T) {
	e := New()
	assert.False(t, e.IsInitialized())
	assert.Equal(t, engine.UnityMono, e.Backend())

	assert.NoError(t, e.Initialize())
	assert.True(t, e.IsInitialized())
}

func TestCapabilitiesReportUnsupported(t *testing.T) {
	e := New()
	_, err := e.FindClass("Foo")
	assert.True(t, lserr.Is(err, lserr.Unsupported))

	_, err = e.EnumerateMethods(1)
	assert.True(t, lserr.Is(err, lserr.Unsupported))

	_, err = e.Invoke(1, 2, nil)
	assert.True(t, lserr.Is(err, lserr.Unsupported))

	err = e.WriteField(1, 2, valuemodel.Value{Type: valuemodel.ValueType{Kind: valuemodel.I32}, I: 0})
	assert.True(t, lserr.Is(err, lserr.Unsupported))
}
