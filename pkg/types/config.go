package types

import "time"

// HTTPConfig holds shared HTTP settings for components that reach the network.
type HTTPConfig struct {
	// Timeout is the per-request timeout applied to each image download.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "heritage-report/2.0").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AcquisitionConfig holds settings for the image acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxImageBytes is the ceiling on a single downloaded image. Content
	// larger than this is recorded as a too-large failure (default 20 MiB).
	MaxImageBytes int64 `json:"max_image_bytes" yaml:"max_image_bytes"`

	// Workers bounds the number of concurrent downloads (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxRetries is the retry budget for rate-limited responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ComposeConfig holds settings for the document composition stage.
type ComposeConfig struct {
	// FontPath points at an optional Unicode TTF used for right-to-left
	// scripts. When empty or missing, rendering falls back to the built-in
	// Latin fonts.
	FontPath string `json:"font_path,omitempty" yaml:"font_path,omitempty"`
}

// PipelineConfig groups all stage configurations for one report run.
type PipelineConfig struct {
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Compose     ComposeConfig     `json:"compose" yaml:"compose"`
}
