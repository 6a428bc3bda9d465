package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	clearData  bool
)

var rootCmd = &cobra.Command{
	Use:   "hris-auth",
	Short: "HRIS authentication and authorization service",
	Long:  `Accounts, sessions, roles and permission checks for the HRIS platform.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml from path, or plain environment variables in
// container deployments, and refuses to return a config that fails validation.
func loadConfig(path string) (*internal.Config, error) {
	var cfg *internal.Config

	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg = internal.LoadConfigFromEnv()
	} else {
		v := viper.New()
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.SetEnvPrefix("ENV")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		v.SetDefault("env", "development")
		v.SetDefault("http_server.port", 8080)
		v.SetDefault("http_server.request_timeout", "5s")
		v.SetDefault("security.issuer", "hris-auth")
		v.SetDefault("security.access_token_duration", internal.DefaultAccessTokenDuration)
		v.SetDefault("security.refresh_token_duration", internal.DefaultRefreshTokenDuration)
		v.SetDefault("security.bcrypt_cost", 12)
		v.SetDefault("logging.level", "info")
		v.SetDefault("logging.format", "text")
		v.SetDefault("docs.spec_path", "./api/openapi.yml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}

		cfg = &internal.Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	}

	cfg.Security.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	logger.InitWith(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
