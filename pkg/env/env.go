// Package env assembles the transport, reporter and memory a bridge binary
// runs with, from flags and environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
	"github.com/robotalks/ddrlink/pkg/ddr/sim"
	fx "github.com/robotalks/ddrlink/pkg/framework"
	"github.com/robotalks/ddrlink/pkg/link/mqtt"
	"github.com/robotalks/ddrlink/pkg/link/serial"
	"github.com/robotalks/ddrlink/pkg/link/websocket"
)

// Transport kinds.
const (
	TransportSerial    = "serial"
	TransportMQTT      = "mqtt"
	TransportWebsocket = "ws"
)

// Config selects the transport and the memory behind a bridge.
type Config struct {
	Transport string

	// Device and Baud are for the serial transport.
	Device string
	Baud   int

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// DeviceID names the topics under the prefix.
	DeviceID string

	// WebsocketURL is the server to dial.
	WebsocketURL string

	// StorageBytes sizes the simulated DDR.
	StorageBytes uint64
}

var defaultConfig = Config{
	Transport:     TransportSerial,
	Device:        "/dev/ttyUSB0",
	Baud:          serial.DefaultBaud,
	MQTTBrokerURL: "mqtt://localhost:1883/ddrlink/",
	StorageBytes:  64 << 20,
}

func init() {
	LoadEnv()
}

// LoadEnv applies the DDRLINK_ environment variables to the defaults.
func LoadEnv() {
	if val := os.Getenv("DDRLINK_TRANSPORT"); val != "" {
		defaultConfig.Transport = val
	}
	if val := os.Getenv("DDRLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("DDRLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("DDRLINK_WS_URL"); val != "" {
		defaultConfig.WebsocketURL = val
	}
}

// LoadDotEnv loads variables from files, .env when none given, without
// overriding the process environment, and applies them to the defaults of
// this package and the bridge. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, fn := range files {
		if err := godotenv.Load(fn); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("load %s: %w", fn, err)
		}
		glog.V(1).Infof("env: loaded %s", fn)
	}
	LoadEnv()
	bridge.LoadEnv()
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Transport, "transport", defaultConfig.Transport, "Transport: serial, mqtt or ws")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, defaults to one derived from the machine ID")
	flag.StringVar(&defaultConfig.WebsocketURL, "ws", defaultConfig.WebsocketURL, "Websocket server URL")
	flag.Uint64Var(&defaultConfig.StorageBytes, "storage", defaultConfig.StorageBytes, "Simulated DDR size in bytes")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is what a bridge runs with.
type Env struct {
	Config     *Config
	Transport  bridge.Transport
	Reporter   bridge.Reporter
	Controller *sim.Controller
	Channel    *ddr.Channel
	// Runners must run while the bridge uses Transport.
	Runners []fx.Runnable

	closers []io.Closer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	ctl := sim.NewController(c.StorageBytes, ddr.DefaultStagingCapacity)
	env := &Env{
		Config:     c,
		Reporter:   bridge.LogReporter{},
		Controller: ctl,
		Channel:    ddr.New(ctl),
	}
	switch c.Transport {
	case TransportSerial:
		stream, port, err := serial.OpenStream(c.Device, c.Baud)
		if err != nil {
			return nil, err
		}
		env.Transport = stream
		env.Runners = append(env.Runners, fx.NamedRun("link", stream))
		env.closers = append(env.closers, port)
	case TransportMQTT:
		q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL)
		if err != nil {
			return nil, fmt.Errorf("create MQTT queue error: %w", err)
		}
		id := c.DeviceID
		if id == "" {
			id = mqtt.DefaultDeviceID()
		}
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connect %s: %w", c.MQTTBrokerURL, token.Error())
		}
		glog.Infof("mqtt: device %s on %s", id, c.MQTTBrokerURL)
		tr := mqtt.NewTransport(q).ForDevice(id)
		env.Transport = tr
		env.Reporter = bridge.Reporters{bridge.LogReporter{}, mqtt.NewReporter(q, id)}
		env.Runners = append(env.Runners, fx.NamedRun("mqtt", tr))
		env.closers = append(env.closers, q)
	case TransportWebsocket:
		if c.WebsocketURL == "" {
			return nil, fmt.Errorf("websocket URL required")
		}
		tr, err := websocket.Dial(c.WebsocketURL, "http://localhost/")
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", c.WebsocketURL, err)
		}
		env.Transport = tr
		env.Runners = append(env.Runners, fx.NamedRun("websocket", tr))
		env.closers = append(env.closers, tr.Conn)
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// NewBridge creates a bridge over the env using conf and waits for the
// memory to calibrate.
func (e *Env) NewBridge(ctx context.Context, conf *bridge.Config) (*bridge.Bridge, error) {
	b, err := conf.NewBridge(e.Channel, e.Transport)
	if err != nil {
		return nil, err
	}
	b.Reporter = e.Reporter
	if err := e.Channel.Calibrate(ctx); err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	return b, nil
}

// Close implements io.Closer.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, c := range e.closers {
		errs.Add(c.Close())
	}
	return errs.Aggregate()
}
