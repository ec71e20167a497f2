// Command tokengen mints a bearer token for POST /orders when the batcher
// runs with AUTH_SECRET set. It reads the same AUTH_* environment as the batcher.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Neyfan/zama-dca-bot-batching/config"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/auth"
)

func main() {
	subject := flag.String("subject", "operator", "Token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		log.Fatal("AUTH_SECRET is not set, order intake is unauthenticated")
	}

	token, err := auth.NewJWTAuthService(cfg.Auth).GenerateAccessToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
