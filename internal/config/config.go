// Package config loads the service configuration from the environment, with an
// optional YAML file overlaying the pipeline tuning values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once in main and
// passed down explicitly; components never read the environment themselves.
type Config struct {
	AppEnv          string `env:"APP_ENV" envDefault:"dev"`
	Port            int    `env:"PORT" envDefault:"8080"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"interview-prep"`

	CORSAllowOrigins string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MIN" envDefault:"10"`
	ShutdownTimeout  time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ProgressTTL      time.Duration `env:"PROGRESS_TTL" envDefault:"24h"`

	// PipelineFile points at an optional YAML overlay for Pipeline.
	PipelineFile string `env:"PIPELINE_CONFIG_FILE"`

	Analyzers AnalyzerConfig `envPrefix:"ANALYZER_"`
	Pipeline  PipelineConfig
}

// AnalyzerConfig locates the three upstream analyzer services.
type AnalyzerConfig struct {
	CompanyResearchURL string `env:"COMPANY_RESEARCH_URL" envDefault:"http://localhost:9001/company-research"`
	JobAnalysisURL     string `env:"JOB_ANALYSIS_URL" envDefault:"http://localhost:9002/job-analysis"`
	CVAnalysisURL      string `env:"CV_ANALYSIS_URL" envDefault:"http://localhost:9003/cv-analysis"`
	APIKey             string `env:"API_KEY"`
}

// PipelineConfig carries every tuning value of a research run.
type PipelineConfig struct {
	Timeouts  TimeoutConfig   `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	Models    ModelConfig     `yaml:"models" envPrefix:"MODEL_"`
	Quality   QualityConfig   `yaml:"quality" envPrefix:"QUALITY_"`
	Relevance RelevanceConfig `yaml:"relevance" envPrefix:"RELEVANCE_"`
	// SectionCharBudget caps each prompt section.
	SectionCharBudget int `yaml:"section_char_budget" env:"PROMPT_SECTION_CHAR_BUDGET" envDefault:"24000"`
}

// TimeoutConfig holds one timeout per external call.
type TimeoutConfig struct {
	CompanyResearch time.Duration `yaml:"company_research" env:"COMPANY_RESEARCH" envDefault:"90s"`
	JobAnalysis     time.Duration `yaml:"job_analysis" env:"JOB_ANALYSIS" envDefault:"60s"`
	CVAnalysis      time.Duration `yaml:"cv_analysis" env:"CV_ANALYSIS" envDefault:"30s"`
	Checkpoint      time.Duration `yaml:"checkpoint" env:"CHECKPOINT" envDefault:"10s"`
	Persist         time.Duration `yaml:"persist" env:"PERSIST" envDefault:"15s"`
	Synthesis       time.Duration `yaml:"synthesis" env:"SYNTHESIS" envDefault:"4m"`
	Refinement      time.Duration `yaml:"refinement" env:"REFINEMENT" envDefault:"90s"`
}

// ModelConfig selects the generative models and their output ceilings.
type ModelConfig struct {
	Synthesis           string `yaml:"synthesis" env:"SYNTHESIS" envDefault:"gemini-2.5-pro"`
	Refinement          string `yaml:"refinement" env:"REFINEMENT" envDefault:"gemini-2.5-flash"`
	SynthesisMaxTokens  int32  `yaml:"synthesis_max_tokens" env:"SYNTHESIS_MAX_TOKENS" envDefault:"32768"`
	RefinementMaxTokens int32  `yaml:"refinement_max_tokens" env:"REFINEMENT_MAX_TOKENS" envDefault:"8192"`
}

// QualityConfig holds the question-count thresholds of the quality gate.
type QualityConfig struct {
	MinTotal          int `yaml:"min_total" env:"MIN_TOTAL" envDefault:"30"`
	MinPerCategory    int `yaml:"min_per_category" env:"MIN_PER_CATEGORY" envDefault:"3"`
	PerCategoryTarget int `yaml:"per_category_target" env:"PER_CATEGORY_TARGET" envDefault:"5"`
	MaxIterations     int `yaml:"max_iterations" env:"MAX_ITERATIONS" envDefault:"2"`
	MaxPerCall        int `yaml:"max_per_call" env:"MAX_PER_CALL" envDefault:"10"`
}

// RelevanceConfig bounds the work-history ranking.
type RelevanceConfig struct {
	MaxKeywords     int `yaml:"max_keywords" env:"MAX_KEYWORDS" envDefault:"120"`
	HighCount       int `yaml:"high_count" env:"HIGH_COUNT" envDefault:"3"`
	SupportingCount int `yaml:"supporting_count" env:"SUPPORTING_COUNT" envDefault:"2"`
}

// Load parses the environment, applies the optional YAML overlay and validates.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.PipelineFile != "" {
		if err := cfg.ApplyFile(cfg.PipelineFile); err != nil {
			return Config{}, fmt.Errorf("op=config.Load: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// ApplyFile overlays the pipeline values present in the YAML file at path.
// Keys missing from the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c.Pipeline); err != nil {
		return fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges that would otherwise surface as confusing runtime behavior.
func (c Config) Validate() error {
	var errs []error
	p := c.Pipeline

	for name, d := range map[string]time.Duration{
		"timeouts.company_research": p.Timeouts.CompanyResearch,
		"timeouts.job_analysis":     p.Timeouts.JobAnalysis,
		"timeouts.cv_analysis":      p.Timeouts.CVAnalysis,
		"timeouts.checkpoint":       p.Timeouts.Checkpoint,
		"timeouts.persist":          p.Timeouts.Persist,
		"timeouts.synthesis":        p.Timeouts.Synthesis,
		"timeouts.refinement":       p.Timeouts.Refinement,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	q := p.Quality
	if q.MinTotal < 0 || q.MinPerCategory < 0 {
		errs = append(errs, errors.New("quality minimums must be non-negative"))
	}
	if q.PerCategoryTarget < q.MinPerCategory {
		errs = append(errs, fmt.Errorf("quality.per_category_target (%d) must be >= min_per_category (%d)", q.PerCategoryTarget, q.MinPerCategory))
	}
	if q.MaxIterations < 0 {
		errs = append(errs, errors.New("quality.max_iterations must be non-negative"))
	}
	if q.MaxPerCall < 1 {
		errs = append(errs, errors.New("quality.max_per_call must be at least 1"))
	}

	r := p.Relevance
	if r.MaxKeywords < 1 || r.HighCount < 0 || r.SupportingCount < 0 {
		errs = append(errs, errors.New("relevance limits out of range"))
	}
	if p.SectionCharBudget < 1000 {
		errs = append(errs, fmt.Errorf("section_char_budget must be at least 1000, got %d", p.SectionCharBudget))
	}
	if c.RateLimitPerMin < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MIN must be non-negative"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// AllowedOrigins splits CORS_ALLOW_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
