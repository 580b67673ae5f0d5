package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hr-matcher"
)

type Config struct {
	AI       *AIConfig       `mapstructure:"ai"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Skills   *SkillsConfig   `mapstructure:"skills"`
	Server   *ServerConfig   `mapstructure:"server"`
	Emails   *EmailsConfig   `mapstructure:"emails"`
	Extract  *ExtractConfig  `mapstructure:"extract"`
}

type AIConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Provider         string        `mapstructure:"provider"`
	StructuredOutput bool          `mapstructure:"structured-output"`
	Gemini           *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string  `mapstructure:"api-key" json:"-"`
	APIKeyFile   string  `mapstructure:"api-key-file"`
	Model        string  `mapstructure:"model"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxRetries   int     `mapstructure:"max-retries"`
	MaxLogLength int     `mapstructure:"max-log-length"`
}

type MatchingConfig struct {
	SelectionThreshold float64       `mapstructure:"selection-threshold"`
	MaxCandidates      int           `mapstructure:"max-candidates"`
	MaxResumeChars     int           `mapstructure:"max-resume-chars"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Fallback           string        `mapstructure:"fallback"`
}

type SkillsConfig struct {
	// Vocabulary replaces the built-in skill list when set.
	Vocabulary []string `mapstructure:"vocabulary"`
	// Extra terms are added on top of the vocabulary.
	Extra []string `mapstructure:"extra"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
}

type EmailsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
}

type ExtractConfig struct {
	Antiword string `mapstructure:"antiword"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-matcher ranks resumes against a job description and drafts candidate emails",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	for key, env := range map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetEnvPrefix("HR_MATCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.structured-output", true)
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.temperature", 0)
	viper.SetDefault("ai.gemini.max-retries", 0)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	viper.SetDefault("matching.selection-threshold", 50.0)
	viper.SetDefault("matching.max-candidates", 10)
	viper.SetDefault("matching.max-resume-chars", 6000)
	viper.SetDefault("matching.timeout", 60*time.Second)
	viper.SetDefault("matching.fallback", "uniform")

	viper.SetDefault("skills.vocabulary", []string{})
	viper.SetDefault("skills.extra", []string{})

	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.allowed-origins", []string{"*"})

	viper.SetDefault("emails.enabled", true)
	viper.SetDefault("emails.concurrency", 4)

	viper.SetDefault("extract.antiword", "antiword")
}

func initConfig() {
	// A missing .env is fine; values may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// We can't proceed if the config file parsed with error.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
