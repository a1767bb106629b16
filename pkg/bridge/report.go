package bridge

import (
	"context"

	"github.com/golang/glog"
	"github.com/rs/xid"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

// Patch describes one completed patch of a transfer.
type Patch struct {
	// Transfer identifies the transfer the patch belongs to.
	Transfer xid.ID
	Dir      ddr.Direction
	Index    int
	Address  ddr.Addr
	Bytes    int
	Total    int
}

// Summary describes a finished transfer.
type Summary struct {
	Transfer xid.ID
	Dir      ddr.Direction
	Bytes    int
	Patches  int
	Err      error
}

// Reporter observes transfer progress.
type Reporter interface {
	PatchDone(context.Context, Patch)
	TransferDone(context.Context, Summary)
}

// LogReporter reports progress to glog.
type LogReporter struct{}

// PatchDone implements Reporter.
func (LogReporter) PatchDone(ctx context.Context, p Patch) {
	glog.V(1).Infof("%s %s patch %d: %d bytes at 0x%x", p.Transfer, p.Dir, p.Index, p.Bytes, p.Address)
}

// TransferDone implements Reporter.
func (LogReporter) TransferDone(ctx context.Context, s Summary) {
	if s.Err != nil {
		glog.Errorf("%s %s failed after %d patches: %v", s.Transfer, s.Dir, s.Patches, s.Err)
		return
	}
	glog.Infof("%s %s done: %d bytes in %d patches", s.Transfer, s.Dir, s.Bytes, s.Patches)
}

// Reporters fans out to multiple reporters.
type Reporters []Reporter

// PatchDone implements Reporter.
func (r Reporters) PatchDone(ctx context.Context, p Patch) {
	for _, rep := range r {
		rep.PatchDone(ctx, p)
	}
}

// TransferDone implements Reporter.
func (r Reporters) TransferDone(ctx context.Context, s Summary) {
	for _, rep := range r {
		rep.TransferDone(ctx, s)
	}
}
