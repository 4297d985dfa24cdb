// Package remote carries bridge traffic over Socket.IO, for web content that
// runs outside the process (a browser or a device-side proxy). The peer emits
// "exec" events and receives "result" events.
package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
	"github.com/tidwall/gjson"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names used on the wire.
const (
	EventExec   = "exec"
	EventResult = "result"
)

// ErrMalformedExec is returned for exec events that do not carry a call.
var ErrMalformedExec = errors.New("malformed exec event")

// Execer accepts inbound calls. *bridge.Bridge implements it.
type Execer interface {
	Exec(ctx context.Context, service, action, callbackID, argsJSON string) error
}

// Options configures the connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Client is a connected Socket.IO transport.
type Client struct {
	io     *socket.Socket
	logger *slog.Logger
}

// Call is one decoded exec event.
type Call struct {
	Service    string
	Action     string
	CallbackID string
	ArgsJSON   string
}

// Dial connects to the peer and starts forwarding its exec events to exec.
// It blocks until the connection is established, fails, or times out.
func Dial(ctx context.Context, opts Options, exec Execer) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("component", "remote_bridge", "url", opts.URL)
	logger.Info("Connecting remote bridge...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)
	c := &Client{io: io, logger: logger}

	io.On(types.EventName(EventExec), func(data ...any) {
		call, err := DecodeCall(data...)
		if err != nil {
			logger.Error("Dropping exec event.", "error", err)
			return
		}
		if err := exec.Exec(ctx, call.Service, call.Action, call.CallbackID, call.ArgsJSON); err != nil {
			logger.Debug("Exec rejected.", "callbackID", call.CallbackID, "error", err)
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Warn("Remote bridge disconnected.", "reason", fmt.Sprint(reason...))
	})

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Remote bridge connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Deliver emits d as a result event. It implements taskqueue.Deliver.
func (c *Client) Deliver(d taskqueue.Delivery, done func()) {
	defer done()
	msg, err := ResultMessage(d)
	if err != nil {
		c.logger.Error("Failed to encode result event.", "callbackID", d.CallbackID, "error", err)
		return
	}
	c.io.Emit(EventResult, msg)
	c.logger.Debug("Result emitted.", "callbackID", d.CallbackID)
}

// Close disconnects from the peer.
func (c *Client) Close() error {
	c.logger.Info("Disconnecting remote bridge.", "sid", c.io.Id())
	c.io.Disconnect()
	return nil
}

// ResultMessage is the payload of a result event: the callback id and the
// envelope JSON text, the same string the in-process webview receives.
func ResultMessage(d taskqueue.Delivery) (map[string]any, error) {
	env, err := d.Envelope.Marshal()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"callbackId": d.CallbackID,
		"result":     string(env),
	}, nil
}

// DecodeCall reads an exec event payload of the form
// {service, action, callbackId, args}. args may be a JSON array or a string
// holding one.
func DecodeCall(data ...any) (Call, error) {
	if len(data) == 0 {
		return Call{}, fmt.Errorf("%w: no payload", ErrMalformedExec)
	}
	var raw string
	switch v := data[0].(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Call{}, fmt.Errorf("%w: %v", ErrMalformedExec, err)
		}
		raw = string(b)
	}
	if !gjson.Valid(raw) {
		return Call{}, fmt.Errorf("%w: invalid JSON", ErrMalformedExec)
	}
	doc := gjson.Parse(raw)
	call := Call{
		Service:    doc.Get("service").String(),
		Action:     doc.Get("action").String(),
		CallbackID: doc.Get("callbackId").String(),
	}
	if call.Service == "" || call.Action == "" {
		return Call{}, fmt.Errorf("%w: service and action are required", ErrMalformedExec)
	}
	switch args := doc.Get("args"); args.Type {
	case gjson.String:
		call.ArgsJSON = args.String()
	case gjson.Null:
		call.ArgsJSON = "[]"
	default:
		call.ArgsJSON = args.Raw
	}
	return call, nil
}
