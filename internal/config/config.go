package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultMaxMissions   = 5
	DefaultAgent         = "codex"
	DefaultResourceGroup = "ls-night-runner-rg"
	DefaultJobName       = "ls-night-runner-job"
	DefaultImageTag      = "dev"
	DefaultMaxLogLines   = 1000
	DefaultProbeMission  = "NM-910"
)

// Config is resolved once at process start and passed down explicitly.
type Config struct {
	SpecRoot     string
	SpecRepo     string
	MaxMissions  int
	Agent        string
	ReposRoot    string
	ResultsRoot  string
	WorkspaceDir string
	ExecutionDir string
	BranchName   string
	LogFile      string

	Worker WorkerConfig
	GitHub GitHubConfig
	Job    JobConfig
	Index  IndexConfig
}

// WorkerConfig carries the credential-derived fields the worker gate checks.
type WorkerConfig struct {
	Name         string
	Backend      string
	Model        string
	APIEnabled   bool
	APIKey       string
	OllamaHost   string
	ProbeMission string
	Doctrine     string
}

type GitHubConfig struct {
	Token string
	Owner string
	Repos []string
	Base  string
}

type JobConfig struct {
	ResourceGroup   string
	JobName         string
	ImageTag        string
	ImageRepository string
	SkipBuild       bool
	MaxLogLines     int
}

type IndexConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough settings exist to build a MinIO client.
func (c IndexConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// FromEnv builds a Config from the process environment. cwd anchors the local
// workspace fallbacks.
func FromEnv(cwd string) (*Config, error) {
	workspace := filepath.Join(cwd, "workspace")
	cfg := &Config{
		SpecRoot:     strings.TrimSpace(os.Getenv("NIGHT_SPEC_ROOT")),
		SpecRepo:     firstNonEmpty(os.Getenv("NIGHT_SPEC_REPO"), "ls-spec"),
		MaxMissions:  envInt("NIGHT_MAX_MISSIONS", DefaultMaxMissions),
		Agent:        firstNonEmpty(os.Getenv("NIGHT_AGENT"), DefaultAgent),
		ReposRoot:    firstNonEmpty(os.Getenv("NIGHT_REPOS_ROOT"), "/workspace/repos"),
		ResultsRoot:  firstNonEmpty(os.Getenv("NIGHT_RESULTS_ROOT"), "/workspace/results"),
		WorkspaceDir: workspace,
		ExecutionDir: strings.TrimSpace(os.Getenv("NIGHT_EXECUTION_DIR")),
		BranchName:   strings.TrimSpace(os.Getenv("NIGHT_BRANCH_NAME")),
		LogFile:      firstNonEmpty(os.Getenv("NIGHT_LOG_FILE"), "nightrunner.log"),
		Worker: WorkerConfig{
			Name:         firstNonEmpty(os.Getenv("NIGHT_WORKER_NAME"), "grok"),
			Backend:      firstNonEmpty(os.Getenv("NIGHT_WORKER_BACKEND"), "gemini"),
			Model:        strings.TrimSpace(os.Getenv("NIGHT_WORKER_MODEL")),
			APIEnabled:   envFlag("NIGHT_WORKER_ENABLE_API"),
			APIKey:       strings.TrimSpace(os.Getenv("NIGHT_WORKER_API_KEY")),
			OllamaHost:   strings.TrimSpace(os.Getenv("OLLAMA_HOST")),
			ProbeMission: firstNonEmpty(os.Getenv("NIGHT_PROBE_MISSION"), DefaultProbeMission),
			Doctrine:     firstNonEmpty(os.Getenv("NIGHT_DOCTRINE"), "ls-d101-night-sandbox-only"),
		},
		GitHub: GitHubConfig{
			Token: strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
			Owner: firstNonEmpty(os.Getenv("GITHUB_OWNER"), "leejad123"),
			Repos: splitList(firstNonEmpty(os.Getenv("NIGHT_CLONE_REPOS"), "ls-spec,ls-backend,ls-scheduler,ls-devops")),
			Base:  firstNonEmpty(os.Getenv("NIGHT_PR_BASE"), "main"),
		},
		Job: JobConfig{
			ResourceGroup:   firstNonEmpty(os.Getenv("NIGHT_RESOURCE_GROUP"), DefaultResourceGroup),
			JobName:         firstNonEmpty(os.Getenv("NIGHT_JOB_NAME"), DefaultJobName),
			ImageTag:        firstNonEmpty(os.Getenv("NIGHT_IMAGE_TAG"), DefaultImageTag),
			ImageRepository: strings.TrimSpace(os.Getenv("NIGHT_IMAGE_REPOSITORY")),
			SkipBuild:       envFlag("NIGHT_SKIP_BUILD"),
			MaxLogLines:     envInt("NIGHT_MAX_LOG_LINES", DefaultMaxLogLines),
		},
		Index: IndexConfig{
			Endpoint:  strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
			Region:    firstNonEmpty(os.Getenv("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")),
			Bucket:    firstNonEmpty(os.Getenv("ARTIFACT_S3_BUCKET"), "night-runner-runs"),
			UseSSL:    envBoolDefault("ARTIFACT_S3_USE_SSL", true),
		},
	}
	if cfg.SpecRoot == "" {
		cfg.SpecRoot = filepath.Join(cwd, cfg.SpecRepo)
	}
	if cfg.MaxMissions < 0 {
		return nil, fmt.Errorf("NIGHT_MAX_MISSIONS must not be negative, got %d", cfg.MaxMissions)
	}
	return cfg, nil
}

// MissionsDir is where mission definition documents live inside the spec repo.
func (c *Config) MissionsDir() string {
	return filepath.Join(c.SpecRoot, "ops", "night_missions")
}

// ValidateSpecRoot fails when the spec checkout or its missions folder is absent.
func (c *Config) ValidateSpecRoot() error {
	if info, err := os.Stat(c.SpecRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("spec repo not found at %s; set NIGHT_SPEC_ROOT to override", c.SpecRoot)
	}
	if info, err := os.Stat(c.MissionsDir()); err != nil || !info.IsDir() {
		return fmt.Errorf("spec repo at %s missing ops/night_missions; check your workspace", c.SpecRoot)
	}
	return nil
}

// FallbackReposRoot is used when ReposRoot cannot be created.
func (c *Config) FallbackReposRoot() string {
	return filepath.Join(c.WorkspaceDir, "repos")
}

// FallbackResultsRoot is used when ResultsRoot cannot be created.
func (c *Config) FallbackResultsRoot() string {
	return filepath.Join(c.WorkspaceDir, "results")
}

var trueValues = map[string]bool{"1": true, "true": true, "yes": true, "on": true}

func envFlag(name string) bool {
	return trueValues[strings.ToLower(strings.TrimSpace(os.Getenv(name)))]
}

func envBoolDefault(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
