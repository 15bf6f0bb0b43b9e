package oids

// This package centralizes the SNMP OIDs the census agent queries. The
// constants mirror the System, Host Resources and Printer MIBs plus the few
// vendor enterprise branches needed for serial numbers, so callers can avoid
// scattering raw dotted strings.

const (
	// --- System/Host Resources MIB (RFC 1213 / RFC 2790) ---

	// SysDescr reports a human-readable system description string.
	SysDescr = "1.3.6.1.2.1.1.1.0"
	// SysObjectID contains the authoritative enterprise OID for the device.
	SysObjectID = "1.3.6.1.2.1.1.2.0"
	// SysName is the administratively assigned host name.
	SysName = "1.3.6.1.2.1.1.5.0"
	// HrDeviceDescr points at HOST-RESOURCES-MIB::hrDeviceDescr.1, which
	// printers fill with vendor + model.
	HrDeviceDescr = "1.3.6.1.2.1.25.3.2.1.3.1"
)

const (
	// --- Printer MIB (RFC 3805) ---

	// PrtGeneralSerialNumber (prtGeneralSerialNumber.1) is the canonical serial.
	PrtGeneralSerialNumber = "1.3.6.1.2.1.43.5.1.1.17.1"
	// PrtMarkerLifeCount1 is prtMarkerLifeCount.1.1, the generic page counter
	// used when no vendor table matches.
	PrtMarkerLifeCount1 = "1.3.6.1.2.1.43.10.2.1.4.1.1"
	// PrtMarkerLifeCountColor is the second marker counter some HP devices
	// use for color impressions.
	PrtMarkerLifeCountColor = "1.3.6.1.2.1.43.10.2.1.5.1.1"

	// Supply levels for the four standard colorant slots
	// (prtMarkerSuppliesLevel.1.N).
	TonerLevelBlack   = "1.3.6.1.2.1.43.11.1.1.9.1.1"
	TonerLevelCyan    = "1.3.6.1.2.1.43.11.1.1.9.1.2"
	TonerLevelMagenta = "1.3.6.1.2.1.43.11.1.1.9.1.3"
	TonerLevelYellow  = "1.3.6.1.2.1.43.11.1.1.9.1.4"
)

const (
	// --- Vendor enterprise branches ---

	// KonicaMinoltaSerial is the serial number under enterprise 2385.
	KonicaMinoltaSerial = "1.3.6.1.4.1.2385.1.1.5.1.1.1"
	// KyoceraSerial is the serial number under enterprise 1347 (ECOSYS).
	KyoceraSerial = "1.3.6.1.4.1.1347.41.1.1.1.1.4.0"
)

// SerialChain is the ordered fallback list used to read a device serial
// during discovery. The generic Printer-MIB serial comes first.
func SerialChain() []string {
	return []string{PrtGeneralSerialNumber, KonicaMinoltaSerial, KyoceraSerial}
}

// ColorTonerLevels lists the non-black supply level OIDs probed when a
// model is not in the curated color table.
func ColorTonerLevels() []string {
	return []string{TonerLevelCyan, TonerLevelMagenta, TonerLevelYellow}
}
