// Package rtpwire turns RTP datagrams (RFC 3550) into packet.Packet values
// and back, and layers the FEC source/repair framing on top of the RTP
// payload. Header (de)serialization is delegated to pion/rtp; this package
// only adds the parts pion/rtp does not know about: the flags this
// pipeline cares about and the FEC footer/header formats.
package rtpwire

import (
	"fmt"

	"github.com/pion/rtp"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

// Binding describes how to interpret one RTP payload type: whether it
// carries FEC framing, and under which scheme.
type Binding struct {
	PayloadType uint8
	IsRepair    bool
	Scheme      Scheme // SchemeNone if this payload type carries no FEC footer/header
}

// Parse decodes an RTP datagram into a packet.Packet. samplesPerChan
// converts the RTP payload's byte length to a sample count via the
// caller-supplied function (format-specific; rtpwire has no opinion on
// PCM encoding). The caller provides the Binding matching the packet's
// payload type, resolved from the session's known payload type table.
func Parse(data []byte, binding Binding, samplesPerChan func(payload []byte) uint32) (*packet.Packet, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("rtpwire: unmarshal: %w", err)
	}
	if pkt.Version != 2 {
		return nil, fmt.Errorf("rtpwire: unsupported RTP version %d", pkt.Version)
	}

	flags := packet.FlagRTP | packet.FlagAudio
	payload := pkt.Payload

	var fecView *packet.FECView
	if binding.Scheme != SchemeNone {
		flags |= packet.FlagFEC
		if binding.IsRepair {
			flags |= packet.FlagRepair
			view, rest, err := ParseRepairHeader(binding.Scheme, payload)
			if err != nil {
				return nil, err
			}
			fecView = view
			payload = rest
		} else {
			view, rest, err := ParseSourceFooter(binding.Scheme, payload)
			if err != nil {
				return nil, err
			}
			fecView = view
			payload = rest
		}
	}

	var csrc []uint32
	if len(pkt.CSRC) > 0 {
		csrc = append([]uint32(nil), pkt.CSRC...)
	}

	p := &packet.Packet{
		SourceID:        pkt.SSRC,
		Seqnum:          pkt.SequenceNumber,
		StreamTimestamp: pkt.Timestamp,
		Marker:          pkt.Marker,
		PayloadType:     pkt.PayloadType,
		Flags:           flags,
		Payload:         payload,
		CSRC:            csrc,
		FEC:             fecView,
	}
	if !binding.IsRepair && samplesPerChan != nil {
		p.Samples = samplesPerChan(payload)
	}
	return p, nil
}

// Compose is the inverse of Parse: it serializes p back into an RTP
// datagram, re-attaching the FEC footer/header described by binding.
func Compose(p *packet.Packet, binding Binding) ([]byte, error) {
	payload := p.Payload

	if binding.Scheme != SchemeNone && p.FEC != nil {
		if binding.IsRepair {
			header := ComposeRepairHeader(binding.Scheme, p.FEC)
			payload = append(append([]byte{}, header...), payload...)
		} else {
			footer := ComposeSourceFooter(binding.Scheme, p.FEC)
			payload = append(append([]byte{}, payload...), footer...)
		}
	}

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         p.Marker,
			PayloadType:    p.PayloadType,
			SequenceNumber: p.Seqnum,
			Timestamp:      p.StreamTimestamp,
			SSRC:           p.SourceID,
			CSRC:           p.CSRC,
		},
		Payload: payload,
	}
	return pkt.Marshal()
}
