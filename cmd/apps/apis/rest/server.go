/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/basenana/nanafiles/cmd/apps/apis/apitool"
	v1 "github.com/basenana/nanafiles/cmd/apps/apis/rest/v1"
	"github.com/basenana/nanafiles/config"
	"github.com/basenana/nanafiles/utils/logger"
)

const (
	defaultHttpTimeout = time.Minute * 5
)

type Server struct {
	engine    *gin.Engine
	apiConfig config.Api
	logger    *zap.SugaredLogger
	services  *v1.ServicesV1
}

func New(depends v1.Depends, cfg config.Api) (*Server, error) {
	if cfg.Port == 0 {
		return nil, fmt.Errorf("http port not set")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	s := &Server{
		engine:    gin.New(),
		apiConfig: cfg,
		logger:    logger.NewLogger("api"),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.logMiddleware())

	services, err := v1.NewServicesV1(depends)
	if err != nil {
		return nil, fmt.Errorf("init services failed: %w", err)
	}
	s.services = services

	v1.RegisterRoutes(s.engine, s.services)

	s.engine.GET("/_ping", s.Ping)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Pprof {
		pprof.Register(s.engine)
	}

	return s, nil
}

func (s *Server) Run(stopCh chan struct{}) {
	addr := fmt.Sprintf("%s:%d", s.apiConfig.Host, s.apiConfig.Port)
	s.logger.Infof("api server on %s", addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apitool.MetricMiddleware("nanafiles", s.engine),
		ReadTimeout:  defaultHttpTimeout,
		WriteTimeout: defaultHttpTimeout,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				s.logger.Panicw("api server down", "err", err)
			}
			s.logger.Infof("api server stopped")
		}
	}()

	<-stopCh
	shutdownCtx, canF := context.WithTimeout(context.TODO(), time.Second)
	defer canF()
	_ = httpServer.Shutdown(shutdownCtx)
}

func (s *Server) Ping(gCtx *gin.Context) {
	gCtx.JSON(200, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(gCtx *gin.Context) {
		start := time.Now()
		path := gCtx.Request.URL.Path
		method := gCtx.Request.Method

		gCtx.Next()

		s.logger.Debugw("api request",
			"method", method,
			"path", path,
			"query", gCtx.Request.URL.Query().Encode(),
			"status", gCtx.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
