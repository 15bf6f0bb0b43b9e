package oids

import (
	"strings"
	"testing"
)

func allOIDs() []struct {
	name string
	oid  string
} {
	return []struct {
		name string
		oid  string
	}{
		// MIB-II System
		{"SysDescr", SysDescr},
		{"SysObjectID", SysObjectID},
		{"SysName", SysName},

		// Host Resources MIB
		{"HrDeviceDescr", HrDeviceDescr},

		// Printer MIB
		{"PrtGeneralSerialNumber", PrtGeneralSerialNumber},
		{"PrtMarkerLifeCount1", PrtMarkerLifeCount1},
		{"PrtMarkerLifeCountColor", PrtMarkerLifeCountColor},

		// Supplies
		{"TonerLevelBlack", TonerLevelBlack},
		{"TonerLevelCyan", TonerLevelCyan},
		{"TonerLevelMagenta", TonerLevelMagenta},
		{"TonerLevelYellow", TonerLevelYellow},

		// Vendors
		{"KonicaMinoltaSerial", KonicaMinoltaSerial},
		{"KyoceraSerial", KyoceraSerial},
	}
}

func TestOIDsAreValidFormat(t *testing.T) {
	t.Parallel()

	for _, tc := range allOIDs() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if !strings.HasPrefix(tc.oid, "1.") {
				t.Errorf("%s = %q should start with '1.'", tc.name, tc.oid)
			}
			for _, c := range tc.oid {
				if c != '.' && (c < '0' || c > '9') {
					t.Errorf("%s = %q contains invalid character %q", tc.name, tc.oid, c)
					break
				}
			}
			if strings.Contains(tc.oid, "..") {
				t.Errorf("%s = %q contains consecutive dots", tc.name, tc.oid)
			}
			if strings.HasSuffix(tc.oid, ".") {
				t.Errorf("%s = %q ends with dot", tc.name, tc.oid)
			}
		})
	}
}

func TestOIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]string)
	for _, tc := range allOIDs() {
		if existing, ok := seen[tc.oid]; ok {
			t.Errorf("duplicate OID %q used by both %s and %s", tc.oid, existing, tc.name)
		}
		seen[tc.oid] = tc.name
	}
}

func TestSerialChainOrder(t *testing.T) {
	t.Parallel()

	chain := SerialChain()
	if len(chain) != 3 {
		t.Fatalf("expected 3 serial OIDs, got %d", len(chain))
	}
	if chain[0] != PrtGeneralSerialNumber {
		t.Errorf("generic Printer-MIB serial must be tried first, got %s", chain[0])
	}

	// callers may mutate the returned slice
	chain[0] = "x"
	if SerialChain()[0] != PrtGeneralSerialNumber {
		t.Error("SerialChain must return a fresh slice")
	}
}

func TestColorTonerLevelsExcludeBlack(t *testing.T) {
	t.Parallel()

	for _, oid := range ColorTonerLevels() {
		if oid == TonerLevelBlack {
			t.Fatal("black toner must not be part of the color probe")
		}
	}
}
