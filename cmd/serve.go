package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/hr-matcher/internal/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is server.addr from the config, :8000)")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.allowed-origins", serveCmd.Flags().Lookup("allowed-origins"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger("")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hr-matcher api", zap.String("version", version))

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	server := api.NewServer(api.Deps{
		Matcher:   c.service,
		Writer:    c.writer,
		Extractor: c.extractor,
		Logger:    logger,
	}, api.Options{
		AllowedOrigins: config.Server.AllowedOrigins,
		MaxCandidates:  config.Matching.MaxCandidates,
	})

	if err := server.ListenAndServe(ctx, config.Server.Addr); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}
}
