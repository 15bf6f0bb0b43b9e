package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
)

// mockSNMPClient implements SNMPClient for testing
type mockSNMPClient struct {
	getResult *gosnmp.SnmpPacket
	getErr    error
	gotOIDs   []string
	closed    bool
}

func (m *mockSNMPClient) Connect() error { return nil }

func (m *mockSNMPClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	m.gotOIDs = oids
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getResult, nil
}

func (m *mockSNMPClient) Close() error {
	m.closed = true
	return nil
}

func querierWith(client *mockSNMPClient) *SNMPQuerier {
	return NewSNMPQuerier(SNMPConfig{Community: "public"}).WithClientFactory(
		func(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error) {
			return client, nil
		})
}

func packet(status gosnmp.SNMPError, pdus ...gosnmp.SnmpPDU) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{Error: status, Variables: pdus}
}

func TestSNMPQuerier_OctetString(t *testing.T) {
	t.Parallel()

	client := &mockSNMPClient{getResult: packet(gosnmp.NoError,
		gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.43.5.1.1.17.1", Type: gosnmp.OctetString, Value: []byte("VNB3K12345\x00 ")})}

	got, err := querierWith(client).Query(context.Background(), "10.0.0.5", "1.3.6.1.2.1.43.5.1.1.17.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "VNB3K12345" {
		t.Errorf("expected trimmed serial, got %q", got)
	}
	if len(client.gotOIDs) != 1 || client.gotOIDs[0] != "1.3.6.1.2.1.43.5.1.1.17.1" {
		t.Errorf("expected a single GET for the OID, got %v", client.gotOIDs)
	}
	if !client.closed {
		t.Error("client should be closed after the query")
	}
}

func TestSNMPQuerier_StripsPadding(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"VNB3K12345\x00\x00 ":   "VNB3K12345",
		"VNB3K12345 \x00\n\x00": "VNB3K12345",
		"\x00 W8Q1234567\r\n":   "W8Q1234567",
		"\x00\x00\x00":           "",
	}
	for raw, want := range tests {
		client := &mockSNMPClient{getResult: packet(gosnmp.NoError,
			gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.43.5.1.1.17.1", Type: gosnmp.OctetString, Value: []byte(raw)})}
		got, err := querierWith(client).Query(context.Background(), "10.0.0.5", "1.3.6.1.2.1.43.5.1.1.17.1")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if got != want {
			t.Errorf("%q: got %q, want %q", raw, got, want)
		}
	}
}

func TestSNMPQuerier_NumericValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want string
	}{
		{"counter32", gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint(123456)}, "123456"},
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 0}, "0"},
		{"gauge", gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(42)}, "42"},
		{"oid", gosnmp.SnmpPDU{Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.1347"}, "1.3.6.1.4.1.1347"},
		{"null", gosnmp.SnmpPDU{Type: gosnmp.Null}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := &mockSNMPClient{getResult: packet(gosnmp.NoError, tc.pdu)}
			got, err := querierWith(client).Query(context.Background(), "10.0.0.5", "1.3.6.1.2.1.43.10.2.1.4.1.1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSNMPQuerier_FailureKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client *mockSNMPClient
		want   FailureKind
	}{
		{"timeout", &mockSNMPClient{getErr: errors.New("request timeout (after 0 retries)")}, FailUnreachable},
		{"v1 noSuchName", &mockSNMPClient{getResult: packet(gosnmp.NoSuchName,
			gosnmp.SnmpPDU{Type: gosnmp.Null})}, FailNoSuchObject},
		{"noSuchObject pdu", &mockSNMPClient{getResult: packet(gosnmp.NoError,
			gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject})}, FailNoSuchObject},
		{"noSuchInstance pdu", &mockSNMPClient{getResult: packet(gosnmp.NoError,
			gosnmp.SnmpPDU{Type: gosnmp.NoSuchInstance})}, FailNoSuchObject},
		{"endOfMibView pdu", &mockSNMPClient{getResult: packet(gosnmp.NoError,
			gosnmp.SnmpPDU{Type: gosnmp.EndOfMibView})}, FailNoSuchObject},
		{"genErr", &mockSNMPClient{getResult: packet(gosnmp.GenErr,
			gosnmp.SnmpPDU{Type: gosnmp.Null})}, FailProtocol},
		{"empty response", &mockSNMPClient{getResult: packet(gosnmp.NoError)}, FailProtocol},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := querierWith(tc.client).Query(context.Background(), "10.0.0.9", "1.3.6.1.2.1.1.5.0")
			if err == nil {
				t.Fatal("expected an error")
			}
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("expected *QueryError, got %T", err)
			}
			if qe.Kind != tc.want {
				t.Errorf("got kind %s, want %s", qe.Kind, tc.want)
			}
			if qe.IP != "10.0.0.9" || qe.OID != "1.3.6.1.2.1.1.5.0" {
				t.Errorf("error should name ip and oid: %v", qe)
			}
		})
	}
}

func TestSNMPQuerier_ConnectFailureIsUnreachable(t *testing.T) {
	t.Parallel()

	q := NewSNMPQuerier(SNMPConfig{}).WithClientFactory(
		func(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error) {
			return nil, errors.New("dial udp: no route to host")
		})

	_, err := q.Query(context.Background(), "10.0.0.9", "1.3.6.1.2.1.1.1.0")
	if FailureOf(err) != FailUnreachable {
		t.Errorf("expected unreachable, got %v", err)
	}
}

func TestSNMPQuerier_CancelledContextSkipsNetwork(t *testing.T) {
	t.Parallel()

	called := false
	q := NewSNMPQuerier(SNMPConfig{}).WithClientFactory(
		func(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error) {
			called = true
			return &mockSNMPClient{}, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Query(ctx, "10.0.0.9", "1.3.6.1.2.1.1.1.0")
	if FailureOf(err) != FailUnreachable {
		t.Errorf("expected unreachable, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got %v", err)
	}
	if called {
		t.Error("client factory must not be called once ctx is done")
	}
}

func TestSNMPQuerier_Defaults(t *testing.T) {
	t.Parallel()

	var got SNMPConfig
	q := NewSNMPQuerier(SNMPConfig{}).WithClientFactory(
		func(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error) {
			got = cfg
			return &mockSNMPClient{getResult: packet(gosnmp.NoError,
				gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("x")})}, nil
		})

	if _, err := q.Query(context.Background(), "10.0.0.1", "1.3.6.1.2.1.1.5.0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Community != "public" || got.Port != 161 || got.Timeout != 2*time.Second {
		t.Errorf("unexpected defaults: %+v", got)
	}
}

func TestFailureOf_NonQueryError(t *testing.T) {
	t.Parallel()

	if FailureOf(nil) != 0 || FailureOf(errors.New("x")) != 0 {
		t.Error("non-QueryError should map to 0")
	}
	if FailureKind(0).String() != "unknown" {
		t.Errorf("unexpected string for zero kind: %s", FailureKind(0))
	}
}
