// cmd/maskd/serve_test.go
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maskd/internal/config"
	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

func TestCheckServeEngine(t *testing.T) {
	t.Run("modern engine is accepted", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		require.Equal(t, masker.EngineModern, cfg.Masker.Engine)
		assert.NoError(t, checkServeEngine(cfg))
	})

	t.Run("legacy engine is rejected", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Masker.Engine = masker.EngineLegacy

		err := checkServeEngine(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "concurrent registration")
	})
}
