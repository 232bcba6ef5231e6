package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ghostzola/internal/markdown"
)

var ErrTargetFlavorUnknown = errors.New("ghostzola config: target flavor is invalid")
var ErrTargetLayoutUnknown = errors.New("ghostzola config: target layout is invalid")
var ErrTargetExtensionInvalid = errors.New("ghostzola config: target extension must start with a dot")
var ErrPagesDirInvalid = errors.New("ghostzola config: pages directory must be a relative path inside the output")
var ErrBodyFallbackUnknown = errors.New("ghostzola config: content body fallback is invalid")
var ErrDescriptionLengthInvalid = errors.New("ghostzola config: description length must be zero or positive")
var ErrMarkdownExtensionUnknown = errors.New("ghostzola config: markdown extension is invalid")

// ErrDatabaseNameRequired guards against a locator that can never match.
var ErrDatabaseNameRequired = errors.New("ghostzola config: archive database name is required")
var ErrDatabaseNameInvalid = errors.New("ghostzola config: archive database name must be a valid base name pattern")
var ErrSpoolUnknown = errors.New("ghostzola config: archive spool mode is invalid")
var ErrMediaOutputDirInvalid = errors.New("ghostzola config: media output directory must be a relative path inside the output")
var ErrWorkersInvalid = errors.New("ghostzola config: output workers must be zero or positive")
var ErrManifestNameInvalid = errors.New("ghostzola config: manifest name must be a plain file name")
var ErrLoggingProviderRequired = errors.New("ghostzola config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("ghostzola config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("ghostzola config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("ghostzola config: logging format is invalid")

const (
	FlavorZola = "zola"
	FlavorHugo = "hugo"

	LayoutDated     = "dated"
	LayoutFlatDated = "flat-dated"
	LayoutFlat      = "flat"

	BodyFallbackHTML      = "html"
	BodyFallbackMobiledoc = "mobiledoc"

	SpoolDisk   = "disk"
	SpoolMemory = "memory"

	DefaultManifestName = ".ghostzola-manifest.json"
)

// Config aggregates every tunable of a conversion run.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Content ContentConfig `yaml:"content"`
	Archive ArchiveConfig `yaml:"archive"`
	Media   MediaConfig   `yaml:"media"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig selects the static-site flavor and how article paths are laid out.
type TargetConfig struct {
	Flavor         string `yaml:"flavor"`
	Layout         string `yaml:"layout"`
	Extension      string `yaml:"extension"`
	SectionIndices bool   `yaml:"section_indices"`
	PagesDir       string `yaml:"pages_dir"`
}

// ContentConfig controls body selection and which posts are emitted.
type ContentConfig struct {
	BodyFallback   string `yaml:"body_fallback"`
	RenderMarkdown bool   `yaml:"render_markdown"`
	// MarkdownExtensions and HardWraps tune rendering when RenderMarkdown is set.
	MarkdownExtensions []string `yaml:"markdown_extensions"`
	HardWraps          bool     `yaml:"hard_wraps"`
	DeriveDescription  bool     `yaml:"derive_description"`
	DescriptionLength  int      `yaml:"description_length"`
	SkipDrafts         bool     `yaml:"skip_drafts"`
	SkipPages          bool     `yaml:"skip_pages"`
	SkipInternalTags   bool     `yaml:"skip_internal_tags"`
}

// ArchiveConfig controls how the archive is indexed.
type ArchiveConfig struct {
	DatabaseName string `yaml:"database_name"`
	Spool        string `yaml:"spool"`
	SpoolDir     string `yaml:"spool_dir"`
}

// MediaConfig controls where media lands and how bodies link to it.
type MediaConfig struct {
	OutputDir            string `yaml:"output_dir"`
	LinkPrefix           string `yaml:"link_prefix"`
	IncludeProfileImages bool   `yaml:"include_profile_images"`
	IncludeFeatureImages bool   `yaml:"include_feature_images"`
	CopyAll              bool   `yaml:"copy_all"`
}

// OutputConfig controls the writer.
type OutputConfig struct {
	Force    bool   `yaml:"force"`
	Workers  int    `yaml:"workers"`
	Manifest string `yaml:"manifest"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns the Zola dated layout with HTML body fallback.
func DefaultConfig() Config {
	return Config{
		Target: TargetConfig{
			Flavor:         FlavorZola,
			Layout:         LayoutDated,
			Extension:      ".md",
			SectionIndices: true,
		},
		Content: ContentConfig{
			BodyFallback:      BodyFallbackHTML,
			DescriptionLength: 160,
		},
		Archive: ArchiveConfig{
			DatabaseName: "ghost.db",
			Spool:        SpoolDisk,
		},
		Media: MediaConfig{
			OutputDir:            "images",
			LinkPrefix:           "/images",
			IncludeFeatureImages: true,
		},
		Output: OutputConfig{
			Manifest: DefaultManifestName,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Load overlays the YAML file at path on DefaultConfig and validates the result.
// An empty path returns the defaults.
func Load(filePath string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(filePath) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, fmt.Errorf("ghostzola config: read %s: %w", filePath, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("ghostzola config: parse %s: %w", filePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	switch normalize(cfg.Target.Flavor) {
	case FlavorZola, FlavorHugo:
	default:
		return fmt.Errorf("%w: %s", ErrTargetFlavorUnknown, cfg.Target.Flavor)
	}
	switch normalize(cfg.Target.Layout) {
	case LayoutDated, LayoutFlatDated, LayoutFlat:
	default:
		return fmt.Errorf("%w: %s", ErrTargetLayoutUnknown, cfg.Target.Layout)
	}
	if ext := cfg.Target.Extension; !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, "/\\") {
		return fmt.Errorf("%w: %q", ErrTargetExtensionInvalid, ext)
	}
	if dir := strings.TrimSpace(cfg.Target.PagesDir); dir != "" && !isLocalDir(dir) {
		return fmt.Errorf("%w: %s", ErrPagesDirInvalid, dir)
	}

	switch normalize(cfg.Content.BodyFallback) {
	case BodyFallbackHTML, BodyFallbackMobiledoc:
	default:
		return fmt.Errorf("%w: %s", ErrBodyFallbackUnknown, cfg.Content.BodyFallback)
	}
	if cfg.Content.DescriptionLength < 0 {
		return ErrDescriptionLengthInvalid
	}
	if _, err := markdown.ParseExtensions(cfg.Content.MarkdownExtensions); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkdownExtensionUnknown, err)
	}

	name := strings.TrimSpace(cfg.Archive.DatabaseName)
	if name == "" {
		return ErrDatabaseNameRequired
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %s", ErrDatabaseNameInvalid, name)
	}
	if _, err := path.Match(name, name); err != nil {
		return fmt.Errorf("%w: %s", ErrDatabaseNameInvalid, name)
	}
	switch normalize(cfg.Archive.Spool) {
	case SpoolDisk, SpoolMemory:
	default:
		return fmt.Errorf("%w: %s", ErrSpoolUnknown, cfg.Archive.Spool)
	}

	if !isLocalDir(strings.TrimSpace(cfg.Media.OutputDir)) {
		return fmt.Errorf("%w: %s", ErrMediaOutputDirInvalid, cfg.Media.OutputDir)
	}

	if cfg.Output.Workers < 0 {
		return ErrWorkersInvalid
	}
	if manifest := strings.TrimSpace(cfg.Output.Manifest); manifest != "" && (strings.ContainsAny(manifest, "/\\") || manifest == "." || manifest == "..") {
		return fmt.Errorf("%w: %s", ErrManifestNameInvalid, manifest)
	}

	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// Normalized returns a copy with enum fields lower-cased and trimmed.
func (cfg Config) Normalized() Config {
	cfg.Target.Flavor = normalize(cfg.Target.Flavor)
	cfg.Target.Layout = normalize(cfg.Target.Layout)
	cfg.Target.PagesDir = strings.Trim(strings.TrimSpace(cfg.Target.PagesDir), "/")
	cfg.Content.BodyFallback = normalize(cfg.Content.BodyFallback)
	cfg.Archive.DatabaseName = strings.TrimSpace(cfg.Archive.DatabaseName)
	cfg.Archive.Spool = normalize(cfg.Archive.Spool)
	cfg.Media.OutputDir = strings.Trim(strings.TrimSpace(cfg.Media.OutputDir), "/")
	cfg.Media.LinkPrefix = strings.TrimRight(strings.TrimSpace(cfg.Media.LinkPrefix), "/")
	cfg.Output.Manifest = strings.TrimSpace(cfg.Output.Manifest)
	cfg.Logging.Provider = normalize(cfg.Logging.Provider)
	return cfg
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isLocalDir(dir string) bool {
	dir = strings.Trim(dir, "/")
	if dir == "" || strings.Contains(dir, "\\") {
		return false
	}
	cleaned := path.Clean(dir)
	return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
