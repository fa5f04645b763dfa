package config

// Document represents the structured forge.yaml configuration.
type Document struct {
	Build       BuildConfig       `json:"build,omitempty" yaml:"build,omitempty"`
	Engine      EngineConfig      `json:"engine,omitempty" yaml:"engine,omitempty"`
	Output      OutputConfig      `json:"output,omitempty" yaml:"output,omitempty"`
	Shaders     ShadersConfig     `json:"shaders,omitempty" yaml:"shaders,omitempty"`
	Optimizer   OptimizerConfig   `json:"optimizer,omitempty" yaml:"optimizer,omitempty"`
	Staging     StagingConfig     `json:"staging,omitempty" yaml:"staging,omitempty"`
	Diagnostics DiagnosticsConfig `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// BuildConfig is the active build mode, resolved once at startup. Every
// stage receives it read-only; there is no process-wide mutable mode state.
type BuildConfig struct {
	Debug    bool `json:"debug,omitempty" yaml:"debug,omitempty"`
	Profiler bool `json:"profiler,omitempty" yaml:"profiler,omitempty"`
	// SourceMap requests a companion .map file beside the artifact. Source
	// maps and conditional compilation are mutually exclusive: source-mapped
	// builds stage sources verbatim.
	SourceMap bool `json:"sourceMap,omitempty" yaml:"sourceMap,omitempty"`
	// Switches are extra directive switches turned on for this build.
	Switches []string `json:"switches,omitempty" yaml:"switches,omitempty"`
	// DefinesFile is an optional properties file contributing switches
	// under the "define." prefix.
	DefinesFile string `json:"definesFile,omitempty" yaml:"definesFile,omitempty"`
}

// EngineConfig identifies the engine being built and its source layout.
type EngineConfig struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	SourceRoot  string `json:"sourceRoot,omitempty" yaml:"sourceRoot,omitempty"`
	Manifest    string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	VersionFile string `json:"versionFile,omitempty" yaml:"versionFile,omitempty"`
}

// OutputConfig locates the produced artifact and its wrapper template.
type OutputConfig struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Wrapper string `json:"wrapper,omitempty" yaml:"wrapper,omitempty"`
}

// ShadersConfig locates the shader asset directory and the generated module.
type ShadersConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Out string `json:"out,omitempty" yaml:"out,omitempty"`
}

// OptimizerConfig selects and tunes the optimizer engine.
type OptimizerConfig struct {
	Engine     string   `json:"engine,omitempty" yaml:"engine,omitempty"`
	Level      string   `json:"level,omitempty" yaml:"level,omitempty"`
	LanguageIn string   `json:"languageIn,omitempty" yaml:"languageIn,omitempty"`
	Externs    string   `json:"externs,omitempty" yaml:"externs,omitempty"`
	Suppress   []string `json:"suppress,omitempty" yaml:"suppress,omitempty"`
	// Command is the external compiler invocation for the closure engine,
	// e.g. [java, -jar, build/compiler.jar].
	Command    []string `json:"command,omitempty" yaml:"command,omitempty"`
	ManageDeps *bool    `json:"manageDeps,omitempty" yaml:"manageDeps,omitempty"`
	// Verbose raises the optimizer's warning level.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// StagingConfig controls the temporary staging tree lifecycle.
type StagingConfig struct {
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
	// KeepOnFailure leaves the staging tree behind when the optimizer fails,
	// for post-mortem inspection. Defaults to true.
	KeepOnFailure *bool `json:"keepOnFailure,omitempty" yaml:"keepOnFailure,omitempty"`
}

// DiagnosticsConfig tunes how optimizer diagnostics are reported.
type DiagnosticsConfig struct {
	// Query is an optional jq expression narrowing which diagnostics are
	// echoed as warnings; the full set always lands in the JSON report.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
}

// SetDefaults applies default values to optional fields.
// IMPORTANT: call this after decoding and before validation.
func (d *Document) SetDefaults() {
	if d.Engine.Name == "" {
		d.Engine.Name = "MeshForge Engine"
	}
	if d.Engine.VersionFile == "" {
		d.Engine.VersionFile = "VERSION"
	}
	if d.Optimizer.Engine == "" {
		d.Optimizer.Engine = "closure"
	}
	if d.Optimizer.Level == "" {
		d.Optimizer.Level = "advanced"
	}
	if d.Optimizer.LanguageIn == "" {
		d.Optimizer.LanguageIn = "ECMASCRIPT5"
	}
	if d.Optimizer.ManageDeps == nil {
		on := true
		d.Optimizer.ManageDeps = &on
	}
	if d.Staging.Root == "" {
		d.Staging.Root = "build/.staging"
	}
	if d.Staging.KeepOnFailure == nil {
		keep := true
		d.Staging.KeepOnFailure = &keep
	}
}
