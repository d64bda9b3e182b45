package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/snapmed/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "snapmed",
	Short: "SnapMed - medication identification from package photos",
	Long: `SnapMed identifies a medication from a photo of its package.

A vision model reads the package, the first line of its answer is looked up
in a drug information service, and the result is normalized into a fixed
record: generic name, dosage form, product type and route.

Authenticated callers get a per-user history of past identifications.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snapmed %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.snapmed/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.snapmed")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers defaults and environment bindings.
// SNAPMED_<SECTION>_<KEY> overrides any key, e.g. SNAPMED_SERVER_ADDRESS.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix("SNAPMED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}

	// Well-known variables of the services SnapMed talks to
	_ = v.BindEnv("environment", "SNAPMED_ENVIRONMENT", "NODE_ENV")
	_ = v.BindEnv("server.address", "SNAPMED_SERVER_ADDRESS")
	_ = v.BindEnv("server.allowed_origins", "SNAPMED_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS")
	_ = v.BindEnv("llm.api_key", "SNAPMED_LLM_API_KEY")
	_ = v.BindEnv("drug_api.url", "SNAPMED_DRUG_API_URL", "API_URL")
	_ = v.BindEnv("drug_api.host", "SNAPMED_DRUG_API_HOST", "RAPIDAPI_HOST")
	_ = v.BindEnv("drug_api.key", "SNAPMED_DRUG_API_KEY", "RAPIDAPI_KEY")
	_ = v.BindEnv("auth.endpoint", "SNAPMED_AUTH_ENDPOINT", "APPWRITE_ENDPOINT")
	_ = v.BindEnv("auth.project_id", "SNAPMED_AUTH_PROJECT_ID", "APPWRITE_PROJECT_ID")
	_ = v.BindEnv("auth.api_key", "SNAPMED_AUTH_API_KEY", "APPWRITE_API_KEY")
}

// defaultSettings flattens model.DefaultConfig into viper keys
func defaultSettings() map[string]any {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil
	}

	flat := make(map[string]any)
	flatten("", tree, flat)
	return flat
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// loadConfig builds the effective configuration from defaults, file, env and flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderKey(cfg)
	return cfg, nil
}

// applyProviderKey fills the LLM key from the provider's usual variable
func applyProviderKey(cfg *model.Config) {
	if cfg.LLM.APIKey != "" {
		return
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini", "google":
		cfg.LLM.APIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
