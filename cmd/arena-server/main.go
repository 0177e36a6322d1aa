package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/app/reward"
	"beast-arena/internal/config"
	"beast-arena/internal/logging"
	"beast-arena/internal/notify"
	"beast-arena/internal/roomcode"
	"beast-arena/internal/store"
	"beast-arena/internal/sweep"
	httptransport "beast-arena/internal/transport/http"
	"beast-arena/internal/ws"
)

type eventCarrier interface {
	notify.Publisher
	notify.Subscriber
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	var events eventCarrier
	if r, rerr := notify.NewRedis(cfg.RedisAddr, cfg.RedisDB); rerr != nil {
		log.Warn().Err(rerr).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-process notifications")
		events = notify.NewBroker()
	} else {
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis notifications enabled")
		events = r
	}

	var transferrer reward.Transferrer
	if cfg.RewardServiceURL != "" {
		transferrer = reward.NewHTTPTransferrer(cfg.RewardServiceURL, cfg.RewardTimeout)
	} else {
		log.Warn().Msg("no reward service configured, payouts stay pending")
	}
	rewards := reward.NewService(transferrer)

	svc := appbattle.NewService(st, roomcode.NewGenerator(nil), events, rewards, nil)

	sweeper := sweep.New(st, events, cfg.SweepInterval, cfg.SweepMaxAge)
	go sweeper.Run(context.Background())

	gw := ws.NewGateway(svc, events)
	router := httptransport.NewRouter(svc, events, gw, st.Ping)
	httptransport.LogRoutes(router)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
