package shotmqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"strconv"
	"strings"
)

import (
	"area2waypoint/pkg/wpml"
)

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DefaultTopic = "area2waypoint/shots"

var ErrBroker = errors.New("invalid broker")

/* Test brokers
   test.mosquitto.org 1883, 8883 8080, 8081 (ws)
   broker.hivemq.com  1883, 8000 (ws)
   broker.emqx.io    1883, 8883, 8083, 8084 (ws)
*/

type BrokerConfig struct {
	// paho broker URL, scheme://host:port[/mqtt]
	URL      string
	Topic    string
	User     string
	Password string
	CAFile   string
	TLS      bool
}

// ParseBroker decodes
// mqtt[s]|ws[s]://[user[:pass]@]host[:port]/topic[?cafile=file].
func ParseBroker(uri string) (BrokerConfig, error) {
	var bc BrokerConfig
	u, err := url.Parse(uri)
	if err != nil {
		return bc, fmt.Errorf("%w: %w", ErrBroker, err)
	}

	var scheme, mpath string
	var port int
	switch u.Scheme {
	case "mqtt", "tcp":
		scheme, port = "tcp", 1883
	case "mqtts", "ssl":
		scheme, port = "ssl", 8883
		bc.TLS = true
	case "ws":
		scheme, port, mpath = "ws", 8083, "/mqtt"
	case "wss":
		scheme, port, mpath = "wss", 8084, "/mqtt"
		bc.TLS = true
	default:
		return bc, fmt.Errorf("%w: scheme %q", ErrBroker, u.Scheme)
	}

	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return bc, fmt.Errorf("%w: port %q", ErrBroker, p)
		}
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	bc.URL = fmt.Sprintf("%s://%s:%d%s", scheme, host, port, mpath)

	bc.Topic = strings.Trim(u.Path, "/")
	if bc.Topic == "" {
		bc.Topic = DefaultTopic
	}
	if up := u.User; up != nil {
		bc.User = up.Username()
		bc.Password, _ = up.Password()
	}
	if ca := u.Query().Get("cafile"); ca != "" {
		bc.CAFile = ca
		bc.TLS = true
		if scheme == "tcp" {
			bc.URL = strings.Replace(bc.URL, "tcp://", "ssl://", 1)
		}
	}
	return bc, nil
}

func tls_config(bc BrokerConfig) (*tls.Config, error) {
	if !bc.TLS {
		return nil, nil
	}
	tc := &tls.Config{ClientAuth: tls.NoClientCert}
	if bc.CAFile != "" {
		ca, err := os.ReadFile(bc.CAFile)
		if err != nil {
			return nil, err
		}
		certpool := x509.NewCertPool()
		if !certpool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("%s: no certificates", bc.CAFile)
		}
		tc.RootCAs = certpool
	}
	if len(os.Getenv("NOVERIFYSSL")) > 0 {
		tc.InsecureSkipVerify = true
	}
	return tc, nil
}

type Client struct {
	client mqtt.Client
	topic  string
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New connects to the broker.
func New(ctx context.Context, bc BrokerConfig) (*Client, error) {
	tc, err := tls_config(bc)
	if err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(bc.URL)
	opts.SetTLSConfig(tc)
	opts.SetClientID(fmt.Sprintf("area2waypoint-%x", rand.Int64()))
	opts.SetUsername(bc.User)
	opts.SetPassword(bc.Password)
	opts.SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", bc.URL, err)
	}
	return &Client{client: client, topic: bc.Topic}, nil
}

type shot_msg struct {
	WaylineID   int     `json:"wayline_id"`
	Idx         int     `json:"idx"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	RelAlt      float64 `json:"rel_alt"`
	GimbalPitch float64 `json:"gimbal_pitch"`
	GimbalYaw   float64 `json:"gimbal_yaw"`
	FlightYaw   float64 `json:"flight_yaw"`
}

// Messages encodes one JSON message per shot, in route then shot order.
func Messages(routes []wpml.RouteShots) ([][]byte, error) {
	var msgs [][]byte
	for _, rs := range routes {
		for i, sp := range rs.Shots {
			b, err := json.Marshal(shot_msg{
				WaylineID:   rs.Route.WaylineID,
				Idx:         i,
				Lat:         sp.Lat,
				Lon:         sp.Lon,
				RelAlt:      sp.RelAlt,
				GimbalPitch: sp.GimbalPitch,
				GimbalYaw:   sp.GimbalYaw,
				FlightYaw:   sp.FlightYaw,
			})
			if err != nil {
				return nil, fmt.Errorf("wayline %d shot %d: %w", rs.Route.WaylineID, i, err)
			}
			msgs = append(msgs, b)
		}
	}
	return msgs, nil
}

// Publish sends every shot at QoS 1, waiting for each acknowledgement.
// It returns the number of messages sent.
func (c *Client) Publish(ctx context.Context, routes []wpml.RouteShots) (int, error) {
	msgs, err := Messages(routes)
	if err != nil {
		return 0, err
	}
	for n, m := range msgs {
		if err := wait(ctx, c.client.Publish(c.topic, 1, false, m)); err != nil {
			return n, fmt.Errorf("mqtt: publish %s: %w", c.topic, err)
		}
	}
	return len(msgs), nil
}

func (c *Client) Close() {
	if c != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
