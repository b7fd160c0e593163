package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/serenity-care/dispatch/core/detect"
	"github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/core/match"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/travelcache"
	"github.com/serenity-care/dispatch/infra/logger"
	"github.com/serenity-care/dispatch/infra/memstore"
	"github.com/serenity-care/dispatch/infra/notify"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

// Subscribes as the worker's mobile app and returns received offers.
func connectWorkerApp(broker, workerID string, t *testing.T) (paho.Client, <-chan string) {
	t.Helper()
	offers := make(chan string, 4)
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("app-" + workerID)
	cli := paho.NewClient(opts)
	var connErr error
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	if connErr != nil {
		t.Logf("worker app connect failed: %v", connErr)
		t.Skip("Mosquitto not ready after retries")
	}
	topic := fmt.Sprintf("worker/%s/offer", workerID)
	if token := cli.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		var offer struct {
			NotificationID string `json:"notification_id"`
		}
		if err := json.Unmarshal(m.Payload(), &offer); err == nil {
			offers <- offer.NotificationID
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	return cli, offers
}

// Full cycle against a real broker: an unassigned visit 45 minutes out is
// detected as a critical gap, the nearby worker receives a push offer, and
// accepting it claims the visit.
func TestDispatchCycleWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	app, offers := connectWorkerApp(broker, "w1", t)
	defer app.Disconnect(100)

	now := time.Now()
	cache := travelcache.New()
	schedule := memstore.NewScheduleStore()
	roster := memstore.NewRosterStore()
	locations := memstore.NewLocationStore(cache)
	nlog := memstore.NewNotificationLog()

	schedule.SeedVisit(model.Visit{
		ID: "v1", OrgID: "org1", ClientID: "c1",
		Start: now.Add(45 * time.Minute), End: now.Add(105 * time.Minute),
		Status: model.VisitScheduled,
	})
	roster.SeedWorker(model.Worker{ID: "w1", Name: "Dana", Active: true, MaxTravelMiles: 25})
	if err := locations.Put(ctx, model.Location{
		Subject: model.SubjectRef{Kind: model.KindClient, ID: "c1"},
		Label:   "Riverside Apartments", Address: "101 River Rd",
		Coords: model.NewCoordinates(39.7589, -84.1916), Active: true,
	}); err != nil {
		t.Fatalf("client location: %v", err)
	}
	if err := locations.Put(ctx, model.Location{
		Subject: model.SubjectRef{Kind: model.KindWorker, ID: "w1"},
		Coords:  model.NewCoordinates(39.7641, -84.1887), Active: true,
	}); err != nil {
		t.Fatalf("worker location: %v", err)
	}

	detector, err := detect.New(schedule, detect.Config{}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	matcher, err := match.New(locations, roster, cache, match.Config{}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	push, err := notify.NewPushChannel(notify.MQTTConfig{
		Broker: broker, ClientID: "dispatch-e2e", QoS: 1,
	})
	if err != nil {
		t.Fatalf("push channel: %v", err)
	}
	defer push.Disconnect()

	mgr, err := dispatch.NewManager(detector, matcher,
		map[model.Channel]dispatch.Notifier{model.ChannelPush: push},
		locations, nlog, nil, nil, logger.NopLogger{},
		dispatch.Config{Channels: []model.Channel{model.ChannelPush}})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	res, err := mgr.RunPass(ctx, "org1", now)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(res.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(res.Gaps))
	}
	gap := res.Gaps[0]
	if gap.Reason != model.ReasonUnassigned || gap.Urgency != model.UrgencyCritical {
		t.Fatalf("gap = %s/%s, want unassigned/critical", gap.Reason, gap.Urgency)
	}

	var notifID string
	select {
	case notifID = <-offers:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker app received no offer")
	}

	resolver, err := dispatch.NewResolver(schedule, nlog, nil, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	outcome, err := resolver.Resolve(ctx, dispatch.Response{
		NotificationID: notifID, WorkerID: "w1", Accept: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome != dispatch.OutcomeAssigned {
		t.Fatalf("outcome = %s, want assigned", outcome)
	}
	v, err := schedule.Visit(ctx, "v1")
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if v.WorkerID != "w1" {
		t.Fatalf("visit assigned to %q, want w1", v.WorkerID)
	}
}
