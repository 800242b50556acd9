package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmynk/tabsettle/internal/auth"
	"github.com/mmynk/tabsettle/internal/config"
)

// runToken mints a caller token: server token -caller chat-bot -groups g1,g2
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("TABSETTLE_CONFIG"), "path to YAML config file")
	caller := fs.String("caller", "", "name of the calling service")
	groups := fs.String("groups", auth.AllGroups, "comma-separated group IDs, or * for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	var scope []string
	for _, g := range strings.Split(*groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			scope = append(scope, g)
		}
	}

	token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(*caller, scope)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
