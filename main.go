package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DillonB07/club-bot/config"
	"github.com/DillonB07/club-bot/controller"
	"github.com/DillonB07/club-bot/platform"
	"github.com/DillonB07/club-bot/repository"
	"github.com/DillonB07/club-bot/service"
	"github.com/flowchartsman/retry"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create mongo client")
	}
	defer mongoClient.Disconnect(context.Background())

	// Failing to reach the store at startup is the only fatal error.
	retrier := retry.NewRetrier(5, time.Second, 10*time.Second)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongoClient.Ping(pingCtx, readpref.Primary())
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to mongo")
	}

	clubRepository := repository.NewClubRepository(mongoClient, cfg.MongoDatabase)
	userRepository := repository.NewUserRepository(mongoClient, cfg.MongoDatabase)

	gateway := platform.NewClient(cfg.GatewayURL, cfg.GatewayToken)

	clubService := service.NewClubService(
		service.UserClubStores{Clubs: clubRepository, Users: userRepository},
		gateway,
		service.ClubServiceConfig{
			ModRoleID:       cfg.ModRoleID,
			MuteRoleID:      cfg.MuteRoleID,
			ClubsCategoryID: cfg.ClubsCategoryID,
			ReviewChannelID: cfg.ReviewChannelID,
			LogChannelID:    cfg.LogChannelID,
		},
	)
	moderationService := service.NewModerationService(userRepository, gateway, cfg.LogChannelID)
	cacheService := service.NewCacheService(clubRepository, userRepository, cfg.CacheStaleAfter, cfg.CacheInterval)
	sweeperService := service.NewSweeperService(userRepository, clubRepository, gateway, cfg.LogChannelID, cfg.SweepInterval)
	bubbleService := service.NewBubbleService(clubRepository, gateway, cfg.LogChannelID, cfg.MuteRoleID, cfg.ClubsCategoryID, cfg.ReapInterval)

	err = cacheService.Refresh(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load cache")
	}

	r := gin.Default()

	clubController := &controller.ClubController{
		ClubService:   clubService,
		BubbleService: bubbleService,
		CacheService:  cacheService,
	}
	clubController.Register(r)

	moderationController := &controller.ModerationController{
		ClubService:       clubService,
		ModerationService: moderationService,
		Platform:          gateway,
		ModRoleID:         cfg.ModRoleID,
	}
	moderationController.Register(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeperService.Run(ctx)
		return nil
	})
	g.Go(func() error {
		bubbleService.Run(ctx)
		return nil
	})
	g.Go(func() error {
		cacheService.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Club bot started")
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}

	log.Info().Msg("Club bot stopped")
}
