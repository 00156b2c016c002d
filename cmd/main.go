package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"defi-chat/handler"
	appconfig "defi-chat/internal/config"
	"defi-chat/internal/graph"
	"defi-chat/internal/integrations/deepseek"
	"defi-chat/internal/integrations/paramstore"
	"defi-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	})))
	paramPrefix := strings.TrimSpace(os.Getenv("PARAM_PREFIX"))
	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	processEnv := appconfig.ProcessEnv()

	// ---- Secrets (optional) ----
	var secrets usecase.SecretSource
	if paramPrefix != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		s, err := paramstore.NewSecrets(ssmClient, paramPrefix)
		if err != nil {
			slog.Error("failed to create secret source", "err", err)
			os.Exit(1)
		}
		secrets = s
	}

	// ---- Service ----
	chatService, err := usecase.NewChatService(deepseek.NewClient(), secrets, processEnv)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	exec, err := graph.NewExecutor(chatService)
	if err != nil {
		slog.Error("failed to create graphql executor", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(exec)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if listenAddr == "" {
		lambda.Start(h.Handle)
		return
	}

	mux := http.NewServeMux()
	mux.Handle(handler.GraphQLPath, h)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("serving graphql", "addr", listenAddr, "path", handler.GraphQLPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}

func logLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
