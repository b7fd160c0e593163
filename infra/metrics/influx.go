package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the
// official client. It backs the agency's coverage dashboards.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordNotifications writes each attempt as a point.
func (s *InfluxSink) RecordNotifications(recs []coremetrics.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("dispatch_notification").
			AddTag("gap_id", r.GapID).
			AddTag("worker_id", r.WorkerID).
			AddTag("channel", string(r.Channel)).
			AddTag("state", string(r.State)).
			AddTag("urgency", r.Urgency.String()).
			AddTag("component", "dispatch_manager").
			AddField("score", round3(r.Score)).
			AddField("miles", round3(r.Miles)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordClaim persists the resolution of one worker response.
func (s *InfluxSink) RecordClaim(rec coremetrics.ClaimRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_claim").
		AddTag("gap_id", rec.GapID).
		AddTag("visit_id", rec.VisitID).
		AddTag("worker_id", rec.WorkerID).
		AddTag("accepted", strconv.FormatBool(rec.Accepted)).
		AddTag("won", strconv.FormatBool(rec.Won)).
		AddTag("component", "dispatch_resolver").
		AddField("latency_ms", round3(rec.Latency.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGapCount writes the size of the most recent detection pass.
func (s *InfluxSink) RecordGapCount(active int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("coverage_gaps").
		AddTag("component", "gap_detector").
		AddField("active", active).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
