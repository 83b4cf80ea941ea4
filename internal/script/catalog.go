// Package script holds the built-in AT command scripts and loads custom ones
// from a TOML catalog file.
package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bft-labs/atdrive/internal/domain"
)

// ID identifies a built-in script.
type ID int

const (
	// Unknown is the zero ID. It selects an empty script.
	Unknown ID = iota
	// HTTP opens a bearer, performs a GET against httpbin and reads the body.
	HTTP
	// MQTT connects with the SM* command set, subscribes, publishes and disconnects.
	MQTT
	// MQTTCMQTT publishes a JSON payload with the CMQTT* command set.
	MQTTCMQTT
)

var names = map[ID]string{
	HTTP:      "http",
	MQTT:      "mqtt",
	MQTTCMQTT: "mqtt-cmqtt",
}

func (id ID) String() string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(id))
}

// ParseID resolves a script name. Matching is case-insensitive.
func ParseID(name string) (ID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, n := range names {
		if n == name {
			return id, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", domain.ErrUnknownScript, name)
}

type entry struct {
	text   string
	waitMs int
}

var builtins = map[ID][]entry{
	HTTP: {
		{"AT+CNACT=0,1\r\n", 1000},
		{"AT+SHCONF=\"URL\",\"http://www.httpbin.org\"\r\n", 1000},
		{"AT+SHCONF=\"BODYLEN\",1024\r\n", 0},
		{"AT+SHCONF=\"HEADERLEN\",350\r\n", 0},
		{"AT+SHCONN\r\n", 1000},
		{"AT+SHSTATE?\r\n", 1000},
		{"AT+SHREQ=\"http://www.httpbin.org/get\",1\r\n", 10000},
		{"AT+SHREAD=0,391\r\n", 3000},
		{"AT+SHDISC\r\n", 0},
	},
	// Broker credentials are deployment specific; supply them through a
	// catalog file when the broker requires them.
	MQTT: {
		{"AT+SHREQ=?\r\n", 1000},
		{"AT+SHREQ?\r\n", 1000},
		{"AT+CNACT=0,1\r\n", 1000},
		{"AT+SMCONF=\"URL\",139.162.164.160,1883\r\n", 1000},
		{"AT+SMCONF=\"KEEPTIME\",60\r\n", 1000},
		{"AT+SMCONF=\"CLEANSS\",1\r\n", 1000},
		{"AT+SMCONF=\"CLIENTID\",\"simmqtt\"\r\n", 1000},
		{"AT+SMCONN\r\n", 5000},
		{"AT+SMSUB=\"information\",1\r\n", 1000},
		{"AT+SMPUB=\"information\",5,1,1\r\n", 1000},
		{">hello\r\n", 1000},
		{"AT+SMUNSUB=\"information\"\r\n", 1000},
		{"AT+SMDISC\r\n", 1000},
		{"AT+CNACT=0,0\r\n", 1000},
	},
	MQTTCMQTT: {
		{"AT+CMQTTSTART\r\n", 1000},
		{"AT+CMQTTACCQ=0,\"clientId123\"\r\n", 1000},
		{"AT+CMQTTCONNECT=0,\"139.162.164.160\",1883\r\n", 5000},
		{"AT+CMQTTTOPIC=0,22\r\n", 100},
		{"example/topic/path\r\n", 100},
		{"AT+CMQTTPAYLOAD=0,14\r\n", 100},
		{"{\"key\":\"value\"}\r\n", 100},
		{"AT+CMQTTPUB=0,1,60\r\n", 5000},
		{"AT+CMQTTDISC=0,60\r\n", 1000},
		{"AT+CMQTTSTOP\r\n", 1000},
	},
}

// For returns the built-in script for id. An unknown id yields an empty
// script; callers treat that as nothing to run.
func For(id ID) domain.Script {
	return build(builtins[id])
}

func build(entries []entry) domain.Script {
	cmds := make([]domain.Command, len(entries))
	for i, e := range entries {
		cmds[i] = domain.NewCommand(e.text, e.waitMs)
	}
	return domain.NewScript(cmds...)
}

// Catalog resolves script names against the built-ins and any scripts loaded
// from a catalog file. File scripts shadow built-ins of the same name.
type Catalog struct {
	custom map[string]domain.Script
}

// NewCatalog returns a catalog holding only the built-in scripts.
func NewCatalog() *Catalog {
	return &Catalog{custom: make(map[string]domain.Script)}
}

// Add registers a named script, replacing any previous script of that name.
func (c *Catalog) Add(name string, s domain.Script) {
	c.custom[normalize(name)] = s
}

// Lookup returns the script registered under name.
func (c *Catalog) Lookup(name string) (domain.Script, error) {
	if s, ok := c.custom[normalize(name)]; ok {
		return s, nil
	}
	id, err := ParseID(name)
	if err != nil {
		return domain.Script{}, err
	}
	return For(id), nil
}

// Names lists every resolvable script name in sorted order.
func (c *Catalog) Names() []string {
	seen := make(map[string]struct{}, len(names)+len(c.custom))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for n := range c.custom {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
