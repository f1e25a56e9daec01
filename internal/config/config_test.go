package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 90*time.Second, cfg.Pipeline.Timeouts.CompanyResearch)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Timeouts.CVAnalysis)
	assert.Equal(t, 30, cfg.Pipeline.Quality.MinTotal)
	assert.Equal(t, 2, cfg.Pipeline.Quality.MaxIterations)
	assert.Equal(t, 120, cfg.Pipeline.Relevance.MaxKeywords)
	assert.Equal(t, "gemini-2.5-pro", cfg.Pipeline.Models.Synthesis)
	assert.Equal(t, int32(32768), cfg.Pipeline.Models.SynthesisMaxTokens)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TIMEOUT_CV_ANALYSIS", "5s")
	t.Setenv("QUALITY_MIN_TOTAL", "40")
	t.Setenv("ANALYZER_JOB_ANALYSIS_URL", "http://jobs.internal/analyze")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.Timeouts.CVAnalysis)
	assert.Equal(t, 40, cfg.Pipeline.Quality.MinTotal)
	assert.Equal(t, "http://jobs.internal/analyze", cfg.Analyzers.JobAnalysisURL)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
timeouts:
  synthesis: 2m
quality:
  min_total: 20
  max_iterations: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PIPELINE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Pipeline.Timeouts.Synthesis)
	assert.Equal(t, 20, cfg.Pipeline.Quality.MinTotal)
	assert.Equal(t, 3, cfg.Pipeline.Quality.MaxIterations)
	assert.Equal(t, 3, cfg.Pipeline.Quality.MinPerCategory, "keys absent from the file keep env values")
}

func TestLoad_MissingOverlayFile(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("TIMEOUT_SYNTHESIS", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		t.Setenv("PIPELINE_CONFIG_FILE", "")
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero timeout", func(c *Config) { c.Pipeline.Timeouts.Checkpoint = 0 }, "timeouts.checkpoint"},
		{"target below minimum", func(c *Config) { c.Pipeline.Quality.PerCategoryTarget = 1 }, "per_category_target"},
		{"per call zero", func(c *Config) { c.Pipeline.Quality.MaxPerCall = 0 }, "max_per_call"},
		{"negative iterations", func(c *Config) { c.Pipeline.Quality.MaxIterations = -1 }, "max_iterations"},
		{"keywords zero", func(c *Config) { c.Pipeline.Relevance.MaxKeywords = 0 }, "relevance"},
		{"tiny budget", func(c *Config) { c.Pipeline.SectionCharBudget = 10 }, "section_char_budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSAllowOrigins: "https://a.example, https://b.example ,"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}
