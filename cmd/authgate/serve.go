package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/zeroauth/authgate/pkg/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OAuth gateway server",
	Run: func(cmd *cobra.Command, args []string) {
		godotenv.Load()

		cfg, err := gateway.ConfigFromEnv()
		if err != nil {
			log.Fatal(err)
		}

		server, err := gateway.New(cfg)
		if err != nil {
			log.Fatal(err)
		}

		root := echo.New()
		root.HideBanner = true
		root.Use(middleware.Recover())

		server.MountRoutes(root.Group(""))

		slog.Info("Starting authgate", "address", cfg.Address, "issuer", cfg.Issuer, "version", gateway.Version)
		log.Fatal(root.Start(cfg.Address))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
