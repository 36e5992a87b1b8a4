// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	transcript_routers "github.com/rapidaai/transcript-api/api/transcript-api/router"

	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	internal_storage "github.com/rapidaai/transcript-api/api/transcript-api/internal/storage"
	internal_telephony_twilio "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony/twilio"
	internal_transcription_deepgram "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription/deepgram"
	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("unable to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("unable to read application config: %v", err)
	}

	logger := commons.NewLogger(cfg.Name, cfg.LogLevel, cfg.LogDir)
	defer logger.Sync()

	postgres, err := connectorsBoot(cfg, logger)
	if err != nil {
		logger.Errorf("postgres boot failed: %v", err)
		return
	}
	defer postgres.Close()

	redis := redisBoot(cfg, logger)
	if redis != nil {
		defer redis.Close()
	}

	blobs, err := internal_storage.NewS3BlobStore(&cfg.AssetStoreConfig, logger,
		cfg.TwilioConfig.AccountSid, cfg.TwilioConfig.AuthToken)
	if err != nil {
		logger.Errorf("asset store boot failed: %v", err)
		return
	}
	telephony := internal_telephony_twilio.NewTwilio(&cfg.TwilioConfig, logger)
	stt := internal_transcription_deepgram.NewDeepgram(&cfg.DeepgramConfig, logger)

	orchestrator := internal_orchestrator.New(cfg, logger, postgres, redis, blobs, telephony, stt)

	if utils.FromEnvironmentStr(cfg.Environment).IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	transcript_routers.HealthCheckRoutes(cfg, engine, logger, postgres, orchestrator, telephony)
	transcript_routers.TranscriptApiRoutes(cfg, engine, logger, postgres, orchestrator, telephony)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("%s listening on %s", cfg.Name, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}
