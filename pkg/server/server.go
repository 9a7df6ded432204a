/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/backup"
	"github.com/stashbin/stashbin/pkg/config"
	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
	"github.com/stashbin/stashbin/pkg/drivers/all"
	"github.com/stashbin/stashbin/pkg/handlers"
	"github.com/stashbin/stashbin/pkg/options"
	"github.com/stashbin/stashbin/pkg/quota"
	"github.com/stashbin/stashbin/pkg/share"
	"github.com/stashbin/stashbin/pkg/storageconfig"
	"github.com/stashbin/stashbin/pkg/utils/crypto"
	"github.com/stashbin/stashbin/pkg/utils/httpclient"
)

type Server struct {
	opts       *options.Options
	httpServer *http.Server
	handler    *handlers.Handler
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = s.initLogs(); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err = s.initHandler(); err != nil {
		klog.ErrorS(err, "failed to init handlers")
		return err
	}
	s.isInited = true
	return nil
}

func (s *Server) initLogs() error {
	if s.opts.LogfilePath != "" {
		if err := flag.Set("log_file", s.opts.LogfilePath); err != nil {
			return err
		}
	}
	if s.opts.LogFileSize > 0 {
		if err := flag.Set("log_file_max_size", strconv.Itoa(s.opts.LogFileSize)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = config.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) initHandler() error {
	dialect := database.Dialect(config.GetDBDriver())
	db, err := database.Connect(&database.DBConfig{
		Driver:         dialect,
		Path:           config.GetDBPath(),
		DBName:         config.GetDBName(),
		Username:       config.GetDBUsername(),
		Password:       config.GetDBPassword(),
		Host:           config.GetDBHost(),
		Port:           config.GetDBPort(),
		SSLMode:        config.GetDBSSLMode(),
		MaxOpenConns:   config.GetDBMaxOpenConns(),
		MaxIdleConns:   config.GetDBMaxIdleConns(),
		ConnectTimeout: config.GetDBConnectTimeout(),
	})
	if err != nil {
		return err
	}
	if err = database.Migrate(s.ctx, db); err != nil {
		return err
	}

	secret, err := config.GetEncryptionSecret()
	if err != nil {
		return err
	}
	cipher, err := crypto.NewCipher(secret)
	if err != nil {
		return err
	}

	dbClient := client.NewClient(db, dialect)
	registry := all.NewRegistry()
	configs := storageconfig.NewService(dbClient, registry, cipher)
	quotaGuard := quota.NewService(dbClient)
	shares := share.NewService(dbClient, registry, configs, quotaGuard, httpclient.NewHttpClient())
	backups := backup.NewService(dbClient, dialect)
	s.handler = handlers.NewHandler(dbClient, registry, configs, shares, backups, quotaGuard)
	return nil
}

func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the server first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting stashbin server")
	go func() {
		if err := s.startHttpServer(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http-server")
			s.cancel()
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown httpserver")
		}
	}
	klog.Info("stashbin server is stopped")
	klog.Flush()
}

func (s *Server) startHttpServer() error {
	if config.GetServerPort() <= 0 {
		return fmt.Errorf("the server port is not defined")
	}
	engine := handlers.InitHttpHandlers(s.handler)
	addr := fmt.Sprintf(":%d", config.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: engine}
	klog.Infof("http-server listen port: %d", config.GetServerPort())
	return s.httpServer.ListenAndServe()
}
