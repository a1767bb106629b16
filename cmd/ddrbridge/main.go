package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
	"github.com/robotalks/ddrlink/pkg/env"
	fx "github.com/robotalks/ddrlink/pkg/framework"
)

var (
	op   = "selftest"
	size = 16 << 10
	base uint
)

func init() {
	if err := env.LoadDotEnv(); err != nil {
		glog.Warning(err)
	}
	env.SetupFlags()
	bridge.SetupFlags()
	flag.StringVar(&op, "op", op, "Operation: upload, download or selftest")
	flag.IntVar(&size, "size", size, "Transfer size in bytes")
	flag.UintVar(&base, "base", base, "Download start doubleword address")
}

func run(ctx context.Context, b *bridge.Bridge) error {
	switch op {
	case "upload":
		return b.Upload(ctx, size)
	case "download":
		return b.Download(ctx, ddr.Addr(base), size)
	case "selftest":
		return b.SelfTest(ctx, size)
	}
	return fmt.Errorf("unknown operation %q", op)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	defer e.Close()

	r := fx.NewRunner().HandleSignals()
	bridgeRun := fx.RunFunc(func(ctx context.Context) error {
		b, err := e.NewBridge(ctx, bridge.Default())
		if err != nil {
			return err
		}
		return run(ctx, b)
	})
	if err := r.Run(append(e.Runners, fx.NamedRun("bridge", bridgeRun))...); err != nil {
		glog.Exitf("%s failed: %v", op, err)
	}
}
