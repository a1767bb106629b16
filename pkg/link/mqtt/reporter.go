package mqtt

import (
	"context"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/rs/xid"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
	fx "github.com/robotalks/ddrlink/pkg/framework"
	"github.com/robotalks/ddrlink/pkg/msgs"
)

// DefaultDeviceID derives a stable device ID from the machine ID.
func DefaultDeviceID() string {
	id, err := machineid.ProtectedID("ddrlink")
	if err != nil {
		glog.Warningf("mqtt: machine id: %v", err)
		return "ddrlink"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// Reporter publishes transfer progress to device/report.
type Reporter struct {
	Queue *Queue
	Topic string
}

// NewReporter creates a Reporter for device.
func NewReporter(q *Queue, device string) *Reporter {
	return &Reporter{Queue: q, Topic: device + "/" + TopicReport}
}

func direction(d ddr.Direction) msgs.Direction {
	if d == ddr.DirWrite {
		return msgs.DirectionUpload
	}
	return msgs.DirectionDownload
}

func transferID(id xid.ID) string {
	if id.IsNil() {
		return ""
	}
	return id.String()
}

// PatchReportFrom converts a bridge patch.
func PatchReportFrom(p bridge.Patch) *msgs.PatchReport {
	return &msgs.PatchReport{
		Direction:  direction(p.Dir),
		Index:      uint32(p.Index),
		Address:    uint32(p.Address),
		Bytes:      uint32(p.Bytes),
		Total:      uint32(p.Total),
		TransferId: transferID(p.Transfer),
	}
}

// TransferSummaryFrom converts a bridge summary.
func TransferSummaryFrom(s bridge.Summary) *msgs.TransferSummary {
	m := &msgs.TransferSummary{
		Direction:  direction(s.Dir),
		Bytes:      uint64(s.Bytes),
		Patches:    uint32(s.Patches),
		TransferId: transferID(s.Transfer),
	}
	if s.Err != nil {
		m.Error = s.Err.Error()
	}
	return m
}

// PatchDone implements bridge.Reporter.
func (r *Reporter) PatchDone(ctx context.Context, p bridge.Patch) {
	r.publish(PatchReportFrom(p))
}

// TransferDone implements bridge.Reporter.
func (r *Reporter) TransferDone(ctx context.Context, s bridge.Summary) {
	token := r.publish(TransferSummaryFrom(s))
	if token != nil {
		token.Wait()
	}
}

func (r *Reporter) publish(msg fx.Message) paho.Token {
	data, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("mqtt: encode report: %v", err)
		return nil
	}
	return r.Queue.Pub(r.Topic, data)
}
