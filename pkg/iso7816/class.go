package iso7816

import (
	"fmt"

	"github.com/chronlc/cardprobe/pkg/bits"
)

// CLA byte handling per ISO/IEC 7816-4. The class byte packs three
// concerns: secure messaging, command chaining and the logical channel.
//
//	bit 8  proprietary (1) vs interindustry (0)
//	bit 7  interindustry encoding: first (0) or further (1)
//	bit 5  chaining (more commands follow)
//
// First interindustry (00xx xxxx) carries SM on bits 4-3 and channels
// 0-3 on bits 2-1. Further interindustry (01xx xxxx) squeezes SM to one
// bit (bit 6) and addresses channels 4-19 on bits 4-1 as channel-4.
//
// EMV proprietary commands (GPO, GENERATE AC) use CLA 0x80, which
// decodes as a proprietary class and is passed through unchanged.

// SecureMessaging defines the security level applied to the APDU.
type SecureMessaging int

const (
	// SMNone indicates no secure messaging or no indication given.
	SMNone SecureMessaging = 0
	// SMProprietary indicates a proprietary secure messaging format (first interindustry only).
	SMProprietary SecureMessaging = 1
	// SMHeaderNoProc indicates ISO secure messaging, header not processed.
	SMHeaderNoProc SecureMessaging = 2
	// SMHeaderAuth indicates ISO secure messaging, header authenticated (first interindustry only).
	SMHeaderAuth SecureMessaging = 3
)

func (sm SecureMessaging) String() string {
	switch sm {
	case SMNone:
		return "None"
	case SMProprietary:
		return "Proprietary"
	case SMHeaderNoProc:
		return "ISO (Header not processed)"
	case SMHeaderAuth:
		return "ISO (Header authenticated)"
	default:
		return "Unknown"
	}
}

// Class represents the parsed ISO 7816-4 Class byte (CLA).
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // logical channel number, 0-19
}

// NewClass decodes a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{Raw: cla}

	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		// First interindustry
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
	} else {
		// Further interindustry
		if bits.IsSet(cla, 6) {
			c.SecureMessaging = SMHeaderNoProc
		}
		c.Channel = bits.GetRange(cla, 4, 1) + 4
	}

	return c, nil
}

// NewInterindustryClass builds a CLA from parameters, picking first or
// further interindustry encoding from the channel number.
func NewInterindustryClass(isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	if channel > 19 {
		return Class{}, fmt.Errorf("channel %d out of range (max 19)", channel)
	}

	// Channels 4-19 only have one SM bit to spend.
	if channel >= 4 && (sm == SMProprietary || sm == SMHeaderAuth) {
		return Class{}, fmt.Errorf("SM indicator %d not supported for further interindustry range (ch 4-19)", sm)
	}

	c := Class{
		IsChained:       isChained,
		SecureMessaging: sm,
		Channel:         channel,
	}

	raw, err := c.Encode()
	if err != nil {
		return Class{}, err
	}
	c.Raw = raw

	return c, nil
}

// Encode converts the Class object back to its byte representation.
func (c *Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}

	var res byte

	if c.Channel <= 3 {
		// First interindustry
		if c.IsChained {
			res = bits.Set(res, 5)
		}
		res |= byte(c.SecureMessaging) << 2
		res |= c.Channel
	} else {
		// Further interindustry
		res = bits.Set(res, 7)
		if c.IsChained {
			res = bits.Set(res, 5)
		}
		if c.SecureMessaging != SMNone {
			res = bits.Set(res, 6)
		}
		res |= c.Channel - 4
	}

	return res, nil
}

// Verbose returns a human-readable description of the CLA byte configuration.
func (c Class) Verbose() string {
	if c.IsProprietary {
		return fmt.Sprintf("Class: Proprietary (0x%02X)", c.Raw)
	}

	rangeName := "First Interindustry (Ch 0-3)"
	if c.Channel >= 4 {
		rangeName = "Further Interindustry (Ch 4-19)"
	}

	chaining := "Last or only command"
	if c.IsChained {
		chaining = "More commands follow (Chaining)"
	}

	return fmt.Sprintf(
		"Range: %s\nChaining: %s\nSecure Messaging: %s\nLogical Channel: %d",
		rangeName, chaining, c.SecureMessaging, c.Channel,
	)
}
