package bridge

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

// Config defines the sizing of a Bridge.
type Config struct {
	// Window is the transport receive window, the upload patch size.
	Window int
	// BurstMax is the largest memory transaction, the download patch size.
	BurstMax int
	// Echo sends the 4-byte handshake word before each upload patch.
	Echo bool
}

var defaultConfig = Config{
	Window:   1024,
	BurstMax: ddr.MaxBurstBytes,
	Echo:     true,
}

func init() {
	LoadEnv()
}

// LoadEnv applies DDRLINK_WINDOW, DDRLINK_BURST and DDRLINK_ECHO to the
// defaults.
func LoadEnv() {
	if n, err := strconv.Atoi(os.Getenv("DDRLINK_WINDOW")); err == nil {
		defaultConfig.Window = n
	}
	if n, err := strconv.Atoi(os.Getenv("DDRLINK_BURST")); err == nil {
		defaultConfig.BurstMax = n
	}
	if b, err := strconv.ParseBool(os.Getenv("DDRLINK_ECHO")); err == nil {
		defaultConfig.Echo = b
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.Window, "window", defaultConfig.Window, "Transport receive window in bytes.")
	flag.IntVar(&defaultConfig.BurstMax, "burst", defaultConfig.BurstMax, "Maximum memory burst in bytes.")
	flag.BoolVar(&defaultConfig.Echo, "echo", defaultConfig.Echo, "Send the handshake word before each upload patch.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks both sizes are whole doublewords within a burst, and the
// window fits in a burst.
func (c *Config) Validate() error {
	if _, err := ddr.CheckLength(c.BurstMax); err != nil {
		return fmt.Errorf("burst: %w", err)
	}
	if _, err := ddr.CheckLength(c.Window); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if c.Window > c.BurstMax {
		return fmt.Errorf("window %d exceeds burst %d: %w", c.Window, c.BurstMax, ErrBadSize)
	}
	return nil
}

// NewBridge creates a Bridge using the config.
func (c *Config) NewBridge(mem Memory, t Transport) (*Bridge, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Bridge{
		Memory:    mem,
		Transport: t,
		Reporter:  LogReporter{},
		Window:    c.Window,
		BurstMax:  c.BurstMax,
		Echo:      c.Echo,
	}, nil
}
