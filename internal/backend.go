package internal

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oklog/run"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/markusressel/controlbox/internal/api"
	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/configuration"
	"github.com/markusressel/controlbox/internal/connections"
	"github.com/markusressel/controlbox/internal/controller"
	"github.com/markusressel/controlbox/internal/persistence"
	"github.com/markusressel/controlbox/internal/publisher"
	"github.com/markusressel/controlbox/internal/statistics"
	"github.com/markusressel/controlbox/internal/ui"
)

const shutdownTimeout = 5 * time.Second

func RunDaemon(version string) {
	config := configuration.CurrentConfig

	storage, err := NewStorage(config)
	if err != nil {
		ui.Fatal("Cannot initialize object storage: %v", err)
	}

	b, err := SetupBox(config, storage, version)
	if err != nil {
		ui.Fatal("Cannot set up box: %v", err)
	}
	if config.SyncDeviceTime.Get() {
		b.SetUtcSeconds(time.Now().Unix())
	}

	registry := statistics.NewRegistry()
	statistics.Register(registry, statistics.NewBoxCollector(b))

	boxController := controller.NewBoxController(b, clock.New(), config.UpdateInterval)

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === control loop
		g.Add(func() error {
			return boxController.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	{
		tcp := config.Connections.Tcp
		if tcp.Enabled {
			server := connections.NewTcpServer(tcp.Address, boxController.Handle)
			g.Add(func() error {
				ui.Info("Listening for commands on %s", tcp.Address)
				return server.Run(ctx)
			}, func(err error) {
				cancel()
			})
		}
	}
	{
		serial := config.Connections.Serial
		if serial.Enabled {
			conn := connections.NewSerialConnection(serial.Port, serial.BaudRate, boxController.Handle)
			g.Add(func() error {
				ui.Info("Listening for commands on %s", serial.Port)
				return conn.Run(ctx)
			}, func(err error) {
				cancel()
			})
		}
	}
	{
		if config.Api.Enabled {
			rest := api.CreateRestService(b.Snapshots(), boxController, registry)
			addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)
			g.Add(func() error {
				ui.Info("Starting REST api on %s", addr)
				if err := rest.Start(addr); err != nil && err != http.ErrServerClosed {
					return pkgerrors.Wrapf(err, "cannot start REST api on %s", addr)
				}
				return nil
			}, func(err error) {
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := rest.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping REST api: %v", err)
				}
			})
		}
	}
	{
		if config.Statistics.Enabled {
			server := newStatisticsServer(config.Statistics.Port, registry)
			g.Add(func() error {
				ui.Info("Serving metrics on %s/metrics", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return pkgerrors.Wrapf(err, "cannot start prometheus metrics endpoint")
				}
				return nil
			}, func(err error) {
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := server.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping statistics server: %v", err)
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		mqttConfig := config.Mqtt
		if mqttConfig.Enabled {
			client, err := publisher.Connect(publisher.MqttConfig{
				Broker:   mqttConfig.Broker,
				ClientID: mqttConfig.ClientId,
				Username: mqttConfig.Username,
				Password: mqttConfig.Password,
				Topic:    mqttConfig.Topic,
			})
			if err != nil {
				ui.Error("MQTT publishing disabled: %v", err)
			} else {
				pub := publisher.NewPublisher(b.Snapshots(), publisher.NewMqttSink(client), mqttConfig.Topic, mqttConfig.PublishInterval, clock.New())
				g.Add(func() error {
					return pub.Run(ctx)
				}, func(err error) {
					cancel()
					publisher.Disconnect(client, mqttConfig.Topic)
				})
			}
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	} else {
		ui.Info("Done.")
		os.Exit(0)
	}
}

func newStatisticsServer(port int, registry *prometheus.Registry) *http.Server {
	if port <= 0 || port >= 65535 {
		port = 9000
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}
}

// NewStorage creates and initializes the object storage selected in the
// configuration.
func NewStorage(config configuration.Configuration) (persistence.Storage, error) {
	var storage persistence.Storage
	switch config.Storage.Type {
	case configuration.StorageBolt, "":
		storage = persistence.NewBoltStorage(config.DbPath)
	case configuration.StorageFile:
		storage = persistence.NewFileStorage(config.Storage.Dir)
	case configuration.StorageMemory:
		ui.Warning("Using memory storage, objects will be lost on exit")
		storage = persistence.NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.Storage.Type)
	}
	if err := storage.Init(); err != nil {
		return nil, err
	}
	return storage, nil
}

// SetupBox creates the box and restores its objects from storage. On first
// boot, the active groups and the seed objects of the configuration are
// applied.
func SetupBox(config configuration.Configuration, storage cbox.ObjectStorage, version string) (*box.Box, error) {
	b := newBox(config, storage, version)
	count, err := b.StoredObjectCount()
	if err != nil {
		return nil, err
	}
	if err := b.Load(); err != nil {
		ui.Warning("Some objects could not be loaded: %v", err)
	}

	if !isStored(storage, blocks.GroupsID) {
		if err := applyActiveGroups(b, config.ActiveGroups); err != nil {
			return nil, err
		}
	}

	if count == 0 && len(config.Objects) > 0 {
		if err := seedObjects(b, config.Objects); err != nil {
			ui.Warning("Some seed objects could not be created: %v", err)
		}
	}
	ui.Info("Loaded %d objects", b.Snapshots().Count())
	return b, nil
}

// OpenBox loads the stored objects of the configured storage, without
// applying any configuration. Used by the offline commands.
func OpenBox(config configuration.Configuration, version string) (*box.Box, error) {
	storage, err := NewStorage(config)
	if err != nil {
		return nil, err
	}
	b := newBox(config, storage, version)
	if err := b.Load(); err != nil {
		ui.Warning("Some objects could not be loaded: %v", err)
	}
	return b, nil
}

func newBox(config configuration.Configuration, storage cbox.ObjectStorage, version string) *box.Box {
	options := box.DefaultOptions()
	options.Version = version
	options.DeviceID = deviceID()
	if config.StartId > 0 {
		options.StartID = cbox.ObjectID(config.StartId)
	}
	options.MaxObjects = config.MaxObjects
	return box.New(storage, options)
}

func isStored(storage cbox.ObjectStorage, id cbox.ObjectID) bool {
	err := storage.RetrieveObject(id, func(r io.Reader) error {
		return nil
	})
	return err == nil
}

func applyActiveGroups(b *box.Box, groups configuration.GroupMask) error {
	list := make([]interface{}, 0, 8)
	for _, n := range groups.Groups() {
		list = append(list, n)
	}
	m, err := codec.FromMap(map[string]interface{}{"activeGroups": list})
	if err != nil {
		return err
	}
	payload, err := m.Marshal()
	if err != nil {
		return err
	}
	record := box.Record{ID: blocks.GroupsID, Groups: cbox.SystemGroup, Type: blocks.GroupsType, Data: payload}
	reply := b.Execute(box.Request{Opcode: box.OpWriteObject, Payload: record.AppendTo(nil)})
	return reply.Err()
}

// seedObjects creates the objects of the configuration. Objects are created
// in order, a failing object does not prevent the others.
func seedObjects(b *box.Box, objects []configuration.ObjectConfig) error {
	var result error
	for _, object := range objects {
		id, err := b.CreateObjectFromMap(cbox.ObjectID(object.Id), cbox.Groups(object.Groups), object.Type, object.Data)
		if err != nil {
			multierr.AppendInto(&result, pkgerrors.Wrapf(err, "cannot create object %d (%s)", object.Id, object.Type))
			continue
		}
		ui.Info("Created seed object %d (%s)", id, object.Type)
	}
	return result
}

func deviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return ""
	}
	id := []byte(hostname)
	if len(id) > 12 {
		id = id[:12]
	}
	return hex.EncodeToString(id)
}
