package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/ddrlink/pkg/framework"
)

// Direction of a transfer as seen from the memory.
type Direction int32

// Directions.
const (
	DirectionDownload Direction = 0
	DirectionUpload   Direction = 1
)

func (d Direction) String() string {
	if d == DirectionUpload {
		return "upload"
	}
	return "download"
}

// TypeID Groups
const (
	GroupTransfer uint32 = 0x00010000
)

// TypeIDs
const (
	PatchReportTypeID     uint32 = TypeIDKindEvent | GroupTransfer | 0x0001
	TransferSummaryTypeID uint32 = TypeIDKindEvent | GroupTransfer | 0x0002
)

// PatchReport is published after each patch.
type PatchReport struct {
	Direction Direction `protobuf:"varint,1,opt,name=direction,proto3" json:"direction,omitempty"`
	Index     uint32    `protobuf:"varint,2,opt,name=index,proto3" json:"index,omitempty"`
	Address   uint32    `protobuf:"varint,3,opt,name=address,proto3" json:"address,omitempty"`
	Bytes     uint32    `protobuf:"varint,4,opt,name=bytes,proto3" json:"bytes,omitempty"`
	Total     uint32    `protobuf:"varint,5,opt,name=total,proto3" json:"total,omitempty"`
	// TransferId is shared by the reports of one transfer.
	TransferId string `protobuf:"bytes,6,opt,name=transfer_id,json=transferId,proto3" json:"transfer_id,omitempty"`
}

// NewMessage implements Message.
func (m *PatchReport) NewMessage() fx.Message { return &PatchReport{} }

// TypeID implements SerializableMessage.
func (m *PatchReport) TypeID() uint32 { return PatchReportTypeID }

// Serializable implements SerializableMessage.
func (m *PatchReport) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PatchReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PatchReport) Reset() { *m = PatchReport{} }

// String implements proto.Message.
func (m *PatchReport) String() string { return proto.CompactTextString(m) }

// TransferSummary is published when a transfer ends.
type TransferSummary struct {
	Direction  Direction `protobuf:"varint,1,opt,name=direction,proto3" json:"direction,omitempty"`
	Bytes      uint64    `protobuf:"varint,2,opt,name=bytes,proto3" json:"bytes,omitempty"`
	Patches    uint32    `protobuf:"varint,3,opt,name=patches,proto3" json:"patches,omitempty"`
	Error      string    `protobuf:"bytes,4,opt,name=error,proto3" json:"error,omitempty"`
	TransferId string    `protobuf:"bytes,5,opt,name=transfer_id,json=transferId,proto3" json:"transfer_id,omitempty"`
}

// NewMessage implements Message.
func (m *TransferSummary) NewMessage() fx.Message { return &TransferSummary{} }

// TypeID implements SerializableMessage.
func (m *TransferSummary) TypeID() uint32 { return TransferSummaryTypeID }

// Serializable implements SerializableMessage.
func (m *TransferSummary) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TransferSummary) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransferSummary) Reset() { *m = TransferSummary{} }

// String implements proto.Message.
func (m *TransferSummary) String() string { return proto.CompactTextString(m) }

// Failed reports whether the transfer ended with an error.
func (m *TransferSummary) Failed() bool { return m.Error != "" }
