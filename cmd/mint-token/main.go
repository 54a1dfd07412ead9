// File: cmd/mint-token/main.go
//
// mint-token prints a bearer token accepted by the relay when
// security.require_auth is set.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sms-relay/internal/config"
	"sms-relay/internal/infra/api"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config yaml")
	subject := flag.String("sub", "", "token subject, e.g. the calling service")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to security.token_ttl)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Security.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "security.jwt_secret (or JWT_SECRET) is not set")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}

	life := cfg.Security.TokenTTL
	if *ttl > 0 {
		life = *ttl
	}
	tok, err := api.NewAuthManager(cfg.Security.JWTSecret, life).Mint(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(life).UTC().Format(time.RFC3339))
}
