// Command gdrive-auth runs the OAuth consent flow once and prints the refresh
// token to put in GDRIVE_REFRESH_TOKEN.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"mixer/internal/pkg/logger"
	"mixer/internal/storage"
)

func main() {
	_ = godotenv.Load()
	log := logger.NewDefault().WithComponent("gdrive-auth")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flow := storage.ConsentFlow{
		ClientID:     mustEnv(log, "GDRIVE_CLIENT_ID"),
		ClientSecret: mustEnv(log, "GDRIVE_CLIENT_SECRET"),
		Prompt: func(authURL, redirectURL string) {
			fmt.Println("\nOpen this URL in your browser:")
			fmt.Println(authURL)
			fmt.Println("\nWaiting for authorization on", redirectURL)
		},
	}

	token, err := flow.RefreshToken(ctx)
	if err != nil {
		log.LogFatal("authorization failed", err)
	}

	fmt.Println("\nGDRIVE_REFRESH_TOKEN:")
	fmt.Println(token)
}

func mustEnv(log *logger.Logger, key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return v
}
