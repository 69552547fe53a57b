// Package socketio implements the subset of the Engine.IO v4 / Socket.IO v5
// wire protocol spoken between the console and the store backend: the
// engine open/ping/pong/message framing, polling payload batching, and the
// socket connect, disconnect, event and error packets.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EngineType is the first byte of every Engine.IO packet.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is the first byte of a Socket.IO packet carried in an engine message.
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
)

// Version is the Engine.IO protocol revision sent as the EIO query parameter.
const Version = "4"

// RecordSeparator delimits packets in a long-polling payload.
const RecordSeparator = "\x1e"

// Open is the handshake body of the engine open packet.
type Open struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // ms
	PingTimeout  int      `json:"pingTimeout"`  // ms
	MaxPayload   int64    `json:"maxPayload"`
}

// EncodeEngine frames data as an engine packet of type t.
func EncodeEngine(t EngineType, data string) string {
	return string(t) + data
}

// DecodeEngine splits an engine packet into its type and data.
func DecodeEngine(raw string) (EngineType, string, error) {
	if raw == "" {
		return 0, "", errors.New("empty engine packet")
	}
	t := EngineType(raw[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, "", fmt.Errorf("unknown engine packet type %q", raw[0])
	}
	return t, raw[1:], nil
}

// ParseOpen decodes the data of an engine open packet.
func ParseOpen(data string) (Open, error) {
	var o Open
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return Open{}, fmt.Errorf("parse open packet: %w", err)
	}
	if o.SID == "" {
		return Open{}, errors.New("open packet without sid")
	}
	return o, nil
}

// SplitPayload splits a polling response body into engine packets.
func SplitPayload(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(body, RecordSeparator)
}

// JoinPayload batches engine packets into one polling request body.
func JoinPayload(packets []string) string {
	return strings.Join(packets, RecordSeparator)
}

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string // "/" when absent on the wire
	ID        *int
	Data      json.RawMessage
}

// Decode parses a Socket.IO packet (the data of an engine message).
func Decode(payload string) (Packet, error) {
	if payload == "" {
		return Packet{}, errors.New("empty payload")
	}
	t := PacketType(payload[0])
	if t < PacketConnect || t > PacketConnectError {
		return Packet{}, fmt.Errorf("unknown packet type %q", payload[0])
	}

	ns, rest := parseNamespace(payload[1:])
	id, rest := parseID(rest)
	p := Packet{Type: t, Namespace: ns, ID: id}
	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return Packet{}, fmt.Errorf("invalid packet data %q", truncate(rest, 64))
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// Encode renders p for transport inside an engine message.
func Encode(p Packet) string {
	var b strings.Builder
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID != nil {
		b.WriteString(strconv.Itoa(*p.ID))
	}
	b.Write(p.Data)
	return b.String()
}

// Message frames p as a complete engine message packet.
func Message(p Packet) string {
	return EncodeEngine(EngineMessage, Encode(p))
}

// Event returns the name and arguments of an event packet.
func (p Packet) Event() (string, []json.RawMessage, error) {
	if p.Type != PacketEvent {
		return "", nil, errors.New("not an event packet")
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(p.Data, &arr); err != nil {
		return "", nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if len(arr) == 0 {
		return "", nil, errors.New("missing event name")
	}
	var name string
	if err := json.Unmarshal(arr[0], &name); err != nil {
		return "", nil, errors.New("invalid event name")
	}
	return name, arr[1:], nil
}

// ErrorMessage returns the message of a connect error packet.
func (p Packet) ErrorMessage() string {
	var body struct {
		Message string `json:"message"`
	}
	if len(p.Data) > 0 && json.Unmarshal(p.Data, &body) == nil && body.Message != "" {
		return body.Message
	}
	var s string
	if len(p.Data) > 0 && json.Unmarshal(p.Data, &s) == nil && s != "" {
		return s
	}
	return "connect error"
}

// ConnectPacket builds a namespace connect packet. data may be nil.
func ConnectPacket(namespace string, data any) (Packet, error) {
	p := Packet{Type: PacketConnect, Namespace: namespace}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Packet{}, err
		}
		p.Data = raw
	}
	return p, nil
}

// ConnectErrorPacket builds a connect error packet carrying message.
func ConnectErrorPacket(namespace, message string) Packet {
	raw, _ := json.Marshal(map[string]string{"message": message})
	return Packet{Type: PacketConnectError, Namespace: namespace, Data: raw}
}

// DisconnectPacket builds a namespace disconnect packet.
func DisconnectPacket(namespace string) Packet {
	return Packet{Type: PacketDisconnect, Namespace: namespace}
}

// EventPacket builds an event packet with the given name and arguments.
func EventPacket(namespace, event string, args ...any) (Packet, error) {
	arr := make([]any, 0, 1+len(args))
	arr = append(arr, event)
	arr = append(arr, args...)
	raw, err := json.Marshal(arr)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: PacketEvent, Namespace: namespace, Data: raw}, nil
}

func parseNamespace(s string) (namespace, rest string) {
	if !strings.HasPrefix(s, "/") {
		return "/", s
	}
	comma := strings.IndexByte(s, ',')
	if comma == -1 {
		return s, ""
	}
	return s[:comma], s[comma+1:]
}

func parseID(s string) (*int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, s
	}
	v, err := strconv.Atoi(s[:i])
	if err != nil {
		return nil, s
	}
	return &v, s[i:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
