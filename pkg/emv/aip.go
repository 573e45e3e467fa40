package emv

import "encoding/binary"

// Application Interchange Profile (tag 82) bit masks, first byte in the
// high-order position.
const (
	AIPSDASupported         uint16 = 0x4000
	AIPDDASupported         uint16 = 0x2000
	AIPCardholderVerify     uint16 = 0x1000
	AIPTerminalRiskMgmt     uint16 = 0x0800
	AIPIssuerAuthentication uint16 = 0x0400
	AIPOnDeviceVerification uint16 = 0x0200
	AIPCDASupported         uint16 = 0x0001
)

// ParseAIP decodes the two-byte AIP value.
func ParseAIP(data []byte) (uint16, bool) {
	if len(data) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(data), true
}

// SelectAuthMethod picks the strongest offline authentication method the
// card advertises. CDA outranks DDA outranks SDA; cards routinely set the
// SDA bit alongside a stronger method for backwards compatibility.
func SelectAuthMethod(aip uint16) AuthMethod {
	switch {
	case aip&AIPCDASupported != 0:
		return AuthCDA
	case aip&AIPDDASupported != 0:
		return AuthDDA
	case aip&AIPSDASupported != 0:
		return AuthSDA
	default:
		return AuthNone
	}
}
