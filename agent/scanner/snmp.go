package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gosnmp/gosnmp"
)

// DefaultSNMPPort is the standard SNMP agent port.
const DefaultSNMPPort = 161

// DefaultSNMPTimeout bounds a single GET when the caller does not set one.
const DefaultSNMPTimeout = 2 * time.Second

// SNMPConfig holds SNMP connection parameters. Only SNMPv1 with a community
// string is spoken.
type SNMPConfig struct {
	Community string
	Port      uint16
	Timeout   time.Duration
}

func (c SNMPConfig) withDefaults() SNMPConfig {
	if c.Community == "" {
		c.Community = "public"
	}
	if c.Port == 0 {
		c.Port = DefaultSNMPPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultSNMPTimeout
	}
	return c
}

// FailureKind classifies why a query produced no value.
type FailureKind int

const (
	// FailUnreachable means no answer arrived within the timeout or the
	// transport could not be set up.
	FailUnreachable FailureKind = iota + 1
	// FailProtocol means the agent answered with an error or a malformed reply.
	FailProtocol
	// FailNoSuchObject means the agent does not expose the requested OID.
	FailNoSuchObject
)

func (k FailureKind) String() string {
	switch k {
	case FailUnreachable:
		return "unreachable"
	case FailProtocol:
		return "protocol-error"
	case FailNoSuchObject:
		return "no-such-object"
	default:
		return "unknown"
	}
}

// QueryError is the error type returned by Querier implementations.
type QueryError struct {
	Kind FailureKind
	IP   string
	OID  string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snmp get %s on %s: %s: %v", e.OID, e.IP, e.Kind, e.Err)
	}
	return fmt.Sprintf("snmp get %s on %s: %s", e.OID, e.IP, e.Kind)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FailureOf extracts the failure kind from err, or 0 when err is not a QueryError.
func FailureOf(err error) FailureKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return 0
}

// Querier performs a single attribute lookup against one device.
type Querier interface {
	Query(ctx context.Context, ip, oid string) (string, error)
}

// SNMPClient defines the interface for SNMP operations.
type SNMPClient interface {
	Connect() error
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

// gosnmpClient wraps gosnmp.GoSNMP to implement SNMPClient.
type gosnmpClient struct {
	conn *gosnmp.GoSNMP
}

func (c *gosnmpClient) Connect() error {
	return c.conn.Connect()
}

func (c *gosnmpClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	return c.conn.Get(oids)
}

func (c *gosnmpClient) Close() error {
	if c.conn.Conn == nil {
		return nil
	}
	return c.conn.Conn.Close()
}

// ClientFactory builds a connected SNMPClient for one target.
type ClientFactory func(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error)

func newSNMPClientImpl(ctx context.Context, cfg SNMPConfig, target string) (SNMPClient, error) {
	if target == "" {
		return nil, fmt.Errorf("target IP required")
	}

	conn := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target,
		Port:      cfg.Port,
		Community: cfg.Community,
		Version:   gosnmp.Version1,
		Timeout:   cfg.Timeout,
		Retries:   0,
	}

	client := &gosnmpClient{conn: conn}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return client, nil
}

// SNMPQuerier issues one SNMPv1 GET per Query call. It holds no connection
// state between calls and is safe for concurrent use.
type SNMPQuerier struct {
	cfg       SNMPConfig
	newClient ClientFactory
}

// NewSNMPQuerier returns a querier using gosnmp with the given settings.
func NewSNMPQuerier(cfg SNMPConfig) *SNMPQuerier {
	return &SNMPQuerier{cfg: cfg.withDefaults(), newClient: newSNMPClientImpl}
}

// WithClientFactory swaps the transport, mainly for tests.
func (q *SNMPQuerier) WithClientFactory(f ClientFactory) *SNMPQuerier {
	q.newClient = f
	return q
}

// Config returns the effective connection settings.
func (q *SNMPQuerier) Config() SNMPConfig { return q.cfg }

// Query returns the value of oid on ip rendered as text.
func (q *SNMPQuerier) Query(ctx context.Context, ip, oid string) (string, error) {
	fail := func(kind FailureKind, err error) (string, error) {
		return "", &QueryError{Kind: kind, IP: ip, OID: oid, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(FailUnreachable, err)
	}

	client, err := q.newClient(ctx, q.cfg, ip)
	if err != nil {
		return fail(FailUnreachable, err)
	}
	defer client.Close()

	pkt, err := client.Get([]string{oid})
	if err != nil {
		return fail(FailUnreachable, err)
	}
	if pkt == nil || len(pkt.Variables) == 0 {
		return fail(FailProtocol, errors.New("empty response"))
	}

	switch pkt.Error {
	case gosnmp.NoError:
	case gosnmp.NoSuchName:
		return fail(FailNoSuchObject, nil)
	default:
		return fail(FailProtocol, fmt.Errorf("error-status %v", pkt.Error))
	}

	value, kind := pduString(pkt.Variables[0])
	if kind != 0 {
		return fail(kind, nil)
	}
	return value, nil
}

// pduString renders a variable binding as text. A non-zero kind means the
// binding carried an exception instead of a value.
func pduString(pdu gosnmp.SnmpPDU) (string, FailureKind) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return "", FailNoSuchObject
	case gosnmp.Null:
		return "", 0
	case gosnmp.OctetString:
		switch v := pdu.Value.(type) {
		case []byte:
			return cleanOctets(string(v)), 0
		case string:
			return cleanOctets(v), 0
		}
		return "", FailProtocol
	case gosnmp.ObjectIdentifier, gosnmp.IPAddress:
		if s, ok := pdu.Value.(string); ok {
			return strings.TrimPrefix(s, "."), 0
		}
		return "", FailProtocol
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32,
		gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String(), 0
	default:
		if pdu.Value == nil {
			return "", 0
		}
		return fmt.Sprint(pdu.Value), 0
	}
}

// cleanOctets strips the NUL and whitespace padding printers put around
// string values, in any mix.
func cleanOctets(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}
