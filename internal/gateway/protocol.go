package gateway

import (
	"encoding/json"
	"runtime"
	"unicode/utf8"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opPresenceUpdate = 3
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// MaxStatusLength is the longest presence text sent, in runes.
const MaxStatusLength = 128

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type outbound struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type readyData struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Properties identifies the client to the gateway.
type Properties struct {
	OS              string `json:"$os"`
	Browser         string `json:"$browser"`
	Device          string `json:"$device"`
	Referrer        string `json:"$referrer"`
	ReferringDomain string `json:"$referring_domain"`
}

// DefaultProperties describes this client.
func DefaultProperties(clientName string) Properties {
	return Properties{
		OS:      runtime.GOOS,
		Browser: clientName,
		Device:  clientName,
	}
}

type identifyData struct {
	Token          string     `json:"token"`
	Properties     Properties `json:"properties"`
	Compress       bool       `json:"compress"`
	LargeThreshold int        `json:"large_threshold"`
}

type game struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

type presenceData struct {
	Game   *game  `json:"game"`
	Since  int64  `json:"since"`
	Status string `json:"status"`
	AFK    bool   `json:"afk"`
}

func heartbeatPayload(seq *int64) outbound {
	return outbound{Op: opHeartbeat, D: seq}
}

func identifyPayload(token string, props Properties) outbound {
	return outbound{Op: opIdentify, D: identifyData{
		Token:          token,
		Properties:     props,
		LargeThreshold: 50,
	}}
}

// presencePayload clears the activity when name is empty.
func presencePayload(name string, activityType int) outbound {
	d := presenceData{Status: "online"}
	if name != "" {
		d.Game = &game{Name: name, Type: activityType}
	}
	return outbound{Op: opPresenceUpdate, D: d}
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
