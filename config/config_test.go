package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/common"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Optimizer.RepartitionSorts)
	assert.False(t, cfg.Optimizer.BoundedOrderPreservingVariants)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			doc:  "",
			want: func(t *testing.T, c *Config) {
				assert.Equal(t, Default(), c)
			},
		},
		{
			name: "partial override",
			doc:  "optimizer:\n  repartition_sorts: false\n",
			want: func(t *testing.T, c *Config) {
				assert.False(t, c.Optimizer.RepartitionSorts)
				assert.Equal(t, "info", c.Logging.Level)
			},
		},
		{
			name: "full document",
			doc: `optimizer:
  repartition_sorts: false
  bounded_order_preserving_variants: true
logging:
  level: debug
  format: json
`,
			want: func(t *testing.T, c *Config) {
				assert.False(t, c.Optimizer.RepartitionSorts)
				assert.True(t, c.Optimizer.BoundedOrderPreservingVariants)
				assert.Equal(t, "debug", c.Logging.Level)
				assert.Equal(t, "json", c.Logging.Format)
			},
		},
		{name: "bad level", doc: "logging:\n  level: loud\n", wantErr: true},
		{name: "bad format", doc: "logging:\n  format: xml\n", wantErr: true},
		{name: "not yaml", doc: "optimizer: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.HasCode(err, common.ConfigError))
				return
			}
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "physopt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  bounded_order_preserving_variants: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Optimizer.BoundedOrderPreservingVariants)
	assert.True(t, cfg.Optimizer.RepartitionSorts)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
