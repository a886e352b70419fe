// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/analytics"
	"github.com/pdiddy/paper-search/internal/enhance"
	"github.com/pdiddy/paper-search/internal/kvstore"
	"github.com/pdiddy/paper-search/internal/search"
	"github.com/pdiddy/paper-search/internal/session"
	"github.com/pdiddy/paper-search/pkg/types"
)

// app holds the components shared by every command.
type app struct {
	cfg      types.Config
	log      *zap.Logger
	store    *kvstore.Store
	recorder *analytics.Recorder
	enhancer *enhance.Enhancer
	redis    *analytics.RedisBroadcaster
}

// openApp opens the store and builds the recorder and enhancer.
func openApp(c types.Config, log *zap.Logger) (*app, error) {
	store, err := kvstore.Open(c.Store.Path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: c, log: log, store: store}
	opts := []analytics.Option{
		analytics.WithHTTPClient(&http.Client{Timeout: c.Analytics.Timeout}),
	}
	if c.Analytics.RedisAddr != "" {
		a.redis = analytics.NewRedisBroadcaster(c.Analytics.RedisAddr, c.Analytics.RedisChannel, log)
		opts = append(opts, analytics.WithBroadcaster(a.redis))
	}
	a.recorder = analytics.New(c.Analytics, store, log, opts...)
	a.enhancer = enhance.New(c.Enhancer, store, log,
		enhance.WithTrending(a.recorder),
		enhance.WithHTTPClient(&http.Client{Timeout: c.Enhancer.Timeout}))
	return a, nil
}

// Close releases the store and the Redis connection.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// sources returns the enabled search sources.
func (a *app) sources() []search.Source {
	client := &http.Client{Timeout: a.cfg.Search.Timeout}
	var out []search.Source
	if a.cfg.Search.EnablePubMed {
		out = append(out, &search.PubMedSource{
			Client:    client,
			APIKey:    a.cfg.Search.NCBIAPIKey,
			Email:     a.cfg.Search.NCBIEmail,
			UserAgent: a.cfg.Search.UserAgent,
			Log:       a.log,
		})
	}
	if a.cfg.Search.EnableSemanticScholar {
		out = append(out, &search.SemanticScholarSource{
			Client:    client,
			APIKey:    a.cfg.Search.SemanticScholarAPIKey,
			UserAgent: a.cfg.Search.UserAgent,
			Log:       a.log,
		})
	}
	return out
}

// controller wires a search session rendering through r.
func (a *app) controller(pageSize int, r session.Renderer) (*session.Controller, *session.Location, error) {
	srcs := a.sources()
	if len(srcs) == 0 {
		return nil, nil, errors.New("no search source is enabled")
	}
	if pageSize <= 0 {
		pageSize = a.cfg.Search.PageSize
	}
	loc, err := session.NewLocation("")
	if err != nil {
		return nil, nil, err
	}

	conn := search.NewConnector(a.cfg.Search.Timeout, a.log, srcs...)
	ctrl := session.NewController(session.Config{
		Pipeline: session.NewPipeline(a.enhancer, conn, a.cfg.Merge.DuplicateThreshold, a.log),
		Recorder: a.recorder,
		History:  session.NewHistory(a.store, a.log),
		Location: loc,
		Renderer: r,
		PageSize: pageSize,
		Log:      a.log,
	})
	return ctrl, loc, nil
}

// startFollow runs follow in the background. The returned function stops
// it and waits for it to return.
func (a *app) startFollow(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.follow(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// follow runs the store watcher and, when configured, the Redis relay so
// the recorder's broker sees changes made by other processes. It returns
// when ctx is done.
func (a *app) follow(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() {
		defer func() { done <- struct{}{} }()
		if err := a.recorder.Watch(ctx, a.cfg.Analytics.WatchInterval); err != nil {
			a.log.Warn("store watcher stopped", zap.Error(err))
		}
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		if a.redis == nil {
			return
		}
		if err := a.redis.Relay(ctx, a.recorder.Broker()); err != nil {
			a.log.Warn("redis relay stopped", zap.Error(err))
		}
	}()
	<-done
	<-done
}
