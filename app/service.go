package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apidispatch "github.com/serenity-care/dispatch/api/dispatch"
	"github.com/serenity-care/dispatch/config"
	"github.com/serenity-care/dispatch/core/detect"
	"github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/core/match"
	coremetrics "github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/route"
	"github.com/serenity-care/dispatch/core/travelcache"
	"github.com/serenity-care/dispatch/infra/logger"
	"github.com/serenity-care/dispatch/infra/memstore"
	"github.com/serenity-care/dispatch/infra/metrics"
	"github.com/serenity-care/dispatch/infra/notify"
	"github.com/serenity-care/dispatch/internal/eventbus"
)

// Service wires the detection loop, the matcher, the notification channels
// and the operator API together.
type Service struct {
	Manager  *dispatch.Manager
	Resolver *dispatch.Resolver
	Detector *detect.Detector
	Matcher  *match.Matcher
	Route    *route.Optimizer

	Schedule  *memstore.ScheduleStore
	Roster    *memstore.RosterStore
	Locations *memstore.LocationStore
	Nlog      *memstore.NotificationLog
	Cache     *travelcache.Cache

	bus    eventbus.EventBus
	sink   coremetrics.Sink
	push   *notify.PushChannel
	log    logger.Logger
	cfg    *config.Config
	apiSrv *http.Server
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	cache := travelcache.New()
	schedule := memstore.NewScheduleStore()
	roster := memstore.NewRosterStore()
	locations := memstore.NewLocationStore(cache)
	nlog := memstore.NewNotificationLog()

	detector, err := detect.New(schedule, cfg.Detect, logger.New("detector"))
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	matcher, err := match.New(locations, roster, cache, cfg.Match, logger.New("matcher"))
	if err != nil {
		return nil, fmt.Errorf("matcher: %w", err)
	}
	matcher.SetCacheTTL(cfg.Cache.TTL())
	optimizer, err := route.New(locations, cache, logger.New("route"))
	if err != nil {
		return nil, fmt.Errorf("route optimizer: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	svc := &Service{
		Detector:  detector,
		Matcher:   matcher,
		Route:     optimizer,
		Schedule:  schedule,
		Roster:    roster,
		Locations: locations,
		Nlog:      nlog,
		Cache:     cache,
		bus:       eventbus.New(),
		sink:      sink,
		log:       logg,
		cfg:       cfg,
	}

	channels, err := svc.buildChannels()
	if err != nil {
		return nil, err
	}
	manager, err := dispatch.NewManager(detector, matcher, channels, locations, nlog, sink, svc.bus, logger.New("dispatch"), cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	// Claims reach the sink through the bus collector; see StartEventCollector.
	resolver, err := dispatch.NewResolver(schedule, nlog, nil, svc.bus, logger.New("resolver"))
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	svc.Manager = manager
	svc.Resolver = resolver
	return svc, nil
}

// buildChannels assembles the configured notification transports.
func (s *Service) buildChannels() (map[model.Channel]dispatch.Notifier, error) {
	channels := make(map[model.Channel]dispatch.Notifier)
	if s.cfg.MQTT.Broker != "" {
		push, err := notify.NewPushChannel(s.cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("push channel: %w", err)
		}
		s.push = push
		channels[model.ChannelPush] = push
	}
	if s.cfg.SMS.Enabled {
		channels[model.ChannelSMS] = notify.NewWebhookChannel(model.ChannelSMS, s.cfg.SMS.Webhook())
	}
	if s.cfg.Email.Enabled {
		channels[model.ChannelEmail] = notify.NewWebhookChannel(model.ChannelEmail, s.cfg.Email.Webhook())
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no notification channel configured")
	}
	return channels, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if interval := s.cfg.Cache.SweepInterval(); interval > 0 {
		s.Cache.StartSweeper(ctx, interval)
	}
	go s.Manager.Run(ctx, s.cfg.OrgID)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := apidispatch.NewMux(s.Detector, s.Resolver, s.Nlog, s.cfg.OrgID)
	s.apiSrv = &http.Server{Addr: s.cfg.API.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.apiSrv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("dispatch service listening on %s", s.cfg.API.Address)
	if err := s.apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.push != nil {
		s.push.Disconnect()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	return nil
}
