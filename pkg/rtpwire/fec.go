package rtpwire

import (
	"encoding/binary"
	"fmt"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

// Scheme selects which FEC footer/header layout a payload type uses.
// Reed-Solomon m=8 bounds every field to a single source block of at most
// 255 symbols and uses a compact 4-byte footer; LDPC-Staircase supports
// much larger blocks and needs 32-bit fields.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeReedSolomon8
	SchemeLDPCStaircase
)

const (
	rs8FooterSize  = 4
	ldpcFooterSize = 16
)

func footerSize(s Scheme) int {
	switch s {
	case SchemeReedSolomon8:
		return rs8FooterSize
	case SchemeLDPCStaircase:
		return ldpcFooterSize
	default:
		return 0
	}
}

// ParseSourceFooter splits a source packet's payload into the real audio
// payload and the trailing FEC footer, per the footer layout for scheme.
func ParseSourceFooter(scheme Scheme, payload []byte) (*packet.FECView, []byte, error) {
	n := footerSize(scheme)
	if n == 0 {
		return nil, payload, fmt.Errorf("rtpwire: unknown FEC scheme %d", scheme)
	}
	if len(payload) < n {
		return nil, nil, fmt.Errorf("rtpwire: payload too short for FEC footer: have %d, need %d", len(payload), n)
	}

	footer := payload[len(payload)-n:]
	rest := payload[:len(payload)-n]

	var view packet.FECView
	switch scheme {
	case SchemeReedSolomon8:
		view.SBN = uint32(footer[0])
		view.ESI = uint32(footer[1])
		view.SBL = uint32(footer[2])
		view.BL = uint32(footer[3])
	case SchemeLDPCStaircase:
		view.SBN = binary.BigEndian.Uint32(footer[0:4])
		view.ESI = binary.BigEndian.Uint32(footer[4:8])
		view.SBL = binary.BigEndian.Uint32(footer[8:12])
		view.BL = binary.BigEndian.Uint32(footer[12:16])
	}
	return &view, rest, nil
}

// ComposeSourceFooter is the inverse of ParseSourceFooter.
func ComposeSourceFooter(scheme Scheme, view *packet.FECView) []byte {
	n := footerSize(scheme)
	footer := make([]byte, n)
	switch scheme {
	case SchemeReedSolomon8:
		footer[0] = byte(view.SBN)
		footer[1] = byte(view.ESI)
		footer[2] = byte(view.SBL)
		footer[3] = byte(view.BL)
	case SchemeLDPCStaircase:
		binary.BigEndian.PutUint32(footer[0:4], view.SBN)
		binary.BigEndian.PutUint32(footer[4:8], view.ESI)
		binary.BigEndian.PutUint32(footer[8:12], view.SBL)
		binary.BigEndian.PutUint32(footer[12:16], view.BL)
	}
	return footer
}

// ParseRepairHeader splits a repair packet's payload into the FEC view and
// the parity payload that follows the header.
func ParseRepairHeader(scheme Scheme, payload []byte) (*packet.FECView, []byte, error) {
	n := footerSize(scheme)
	if n == 0 {
		return nil, payload, fmt.Errorf("rtpwire: unknown FEC scheme %d", scheme)
	}
	if len(payload) < n {
		return nil, nil, fmt.Errorf("rtpwire: payload too short for FEC header: have %d, need %d", len(payload), n)
	}

	header := payload[:n]
	rest := payload[n:]

	var view packet.FECView
	switch scheme {
	case SchemeReedSolomon8:
		view.SBN = uint32(header[0])
		view.ESI = uint32(header[1])
		view.SBL = uint32(header[2])
		view.BL = uint32(header[3])
	case SchemeLDPCStaircase:
		view.SBN = binary.BigEndian.Uint32(header[0:4])
		view.ESI = binary.BigEndian.Uint32(header[4:8])
		view.SBL = binary.BigEndian.Uint32(header[8:12])
		view.BL = binary.BigEndian.Uint32(header[12:16])
	}
	return &view, rest, nil
}

// ComposeRepairHeader is the inverse of ParseRepairHeader.
func ComposeRepairHeader(scheme Scheme, view *packet.FECView) []byte {
	return ComposeSourceFooter(scheme, view)
}
