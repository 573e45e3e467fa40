package iso7816

// Offline authentication support commands (ISO 7816-4).
//
// GET CHALLENGE (INS '84') asks the card for a random challenge. Dynamic
// Data Authentication uses it before INTERNAL AUTHENTICATE so that the
// signed payload is fresh on both sides.
//
// INTERNAL AUTHENTICATE (INS '88') sends terminal-built authentication data
// (materialized from the card's DDOL) and returns the Signed Dynamic
// Application Data.

// GetChallenge creates a GET CHALLENGE command requesting up to 256 bytes;
// cards typically answer with 8.
func GetChallenge(cla Class) *CommandAPDU {
	ins, _ := NewInstruction(INS_GET_CHALLENGE)
	return NewCommandAPDU(cla, ins, 0x00, 0x00, nil, MaxShortLe)
}

// InternalAuthenticate creates an INTERNAL AUTHENTICATE command carrying the
// materialized DDOL payload.
func InternalAuthenticate(cla Class, data []byte) *CommandAPDU {
	ins, _ := NewInstruction(INS_INTERNAL_AUTHENTICATE)
	return NewCommandAPDU(cla, ins, 0x00, 0x00, data, MaxShortLe)
}
