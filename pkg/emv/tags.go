package emv

// Canonical tag identifiers (uppercase hex) for the EMV data elements the
// engine reads and writes. The session database and the DOL interpreter key
// everything by these strings.
const (
	// Card-supplied structure tags
	TagFCITemplate     = "6F"
	TagReadRecordTempl = "70"
	TagGPOFormat2      = "77"
	TagGPOFormat1      = "80"
	TagAppTemplate     = "61"
	TagFCIProprietary  = "A5"
	TagFCIDiscretional = "BF0C"

	// Application selection
	TagADFName  = "4F"
	TagDFName   = "84"
	TagAppLabel = "50"
	TagPriority = "87"
	TagPDOL     = "9F38"

	// Processing options / records
	TagAIP    = "82"
	TagAFL    = "94"
	TagPAN    = "5A"
	TagTrack2 = "57"
	TagExpiry = "5F24"
	TagHolder = "5F20"

	// Offline authentication
	TagDDOL = "9F49"
	TagSDAD = "9F4B" // Signed Dynamic Application Data

	// Cryptogram generation
	TagCDOL1      = "8C"
	TagCDOL2      = "8D"
	TagCryptogram = "9F26"
	TagCID        = "9F27"
	TagATC        = "9F36"
	TagIssuerAppD = "9F10"

	// Terminal-side data elements
	TagAmountAuthorized    = "9F02"
	TagAmountOther         = "9F03"
	TagTerminalCountry     = "9F1A"
	TagTVR                 = "95"
	TagTransactionCurrency = "5F2A"
	TagTransactionDate     = "9A"
	TagTransactionType     = "9C"
	TagUnpredictableNumber = "9F37"
	TagTerminalType        = "9F35"
	TagTerminalCaps        = "9F33"
	TagAdditionalTermCaps  = "9F40"
	TagTTQ                 = "9F66"
	TagCVMResults          = "9F34"
	TagMerchantNameLoc     = "9F4E"
)

// commandTemplateTag wraps materialized PDOL data in the GPO command field.
const commandTemplateTag = 0x83
