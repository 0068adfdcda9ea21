package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/core/service"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type Server struct {
	port        uint
	httpLog     bool
	accessKey   []byte
	rootContext *actor.RootContext
	masterActor *actor.PID
	homes       map[string]port.Home
	fulfillment *service.Fulfillment
	logger      *zap.Logger
}

// NewServer builds the HTTP server. homes maps user ids to their live device
// tree.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, homes map[string]port.Home, logger *zap.Logger) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor, homes, logger)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, homes map[string]port.Home, logger *zap.Logger) *Server {
	return &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		accessKey:   []byte(cfg.Secrets.AccessKey),
		rootContext: rootContext,
		masterActor: masterActor,
		homes:       homes,
		fulfillment: service.NewFulfillment(logger),
		logger:      logger.With(zap.String("component", "server")),
	}
}
