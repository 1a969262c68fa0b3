package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trendscout/infrastructure/config"
	"trendscout/infrastructure/di"
)

// gateway adapts API Gateway HTTP API events onto the chi router
type gateway struct {
	adapter   *chiadapter.ChiLambdaV2
	container *di.Container
	warm      bool
}

func newGateway(ctx context.Context) (*gateway, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mux, ok := container.Router().Setup().(*chi.Mux)
	if !ok {
		return nil, errUnexpectedRouter
	}
	return &gateway{adapter: chiadapter.NewV2(mux), container: container}, nil
}

func (g *gateway) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	logger := g.container.Logger.With(zap.String("request_id", req.RequestContext.RequestID))
	logger.Debug("Invocation",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.Bool("cold_start", !g.warm),
	)
	g.warm = true

	resp, err := g.adapter.ProxyWithContextV2(ctx, req)
	if err != nil {
		logger.Error("Proxying request failed", zap.Error(err))
		return resp, err
	}

	// Buffered metrics must leave before the sandbox freezes
	if cw := g.container.CloudWatch; cw != nil {
		if err := cw.Flush(ctx); err != nil {
			logger.Warn("CloudWatch flush failed", zap.Error(err))
		}
	}
	_ = g.container.Logger.Sync()
	return resp, nil
}

func (g *gateway) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := g.container.Close(ctx); err != nil {
		log.Printf("closing container: %v", err)
	}
}

var errUnexpectedRouter = errors.New("router is not a *chi.Mux")

func main() {
	started := time.Now()
	g, err := newGateway(context.Background())
	if err != nil {
		log.Fatalf("trendscout lambda: %v", err)
	}
	g.container.Logger.Info("Cold start complete", zap.Duration("duration", time.Since(started)))

	lambda.StartWithOptions(g.handle, lambda.WithEnableSIGTERM(g.shutdown))
}
