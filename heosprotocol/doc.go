// Package heosprotocol implements the client side of the HEOS CLI protocol
// spoken by networked HEOS audio devices.
//
// # Protocol Overview
//
// The protocol is line oriented over TCP port 1255. Every line ends with
// CR+LF. Requests are URIs; responses and events are JSON objects.
//
//	Request:  heos://<command>?<key>=<value>&...
//	Response: {"heos":{"command":"...","result":"success","message":"..."},"payload":...}
//	Event:    {"heos":{"command":"event/...","message":"..."}}
//
// The message field is a query string of response parameters. Responses
// carry no request id, so commands are sent one at a time and the next
// line that is neither an event nor a "command under process" notice is
// the response to the command in flight.
//
// # Basic Usage
//
//	conn := heosprotocol.NewReconnectingConnection("192.168.1.10",
//	    heosprotocol.WithReconnect(true),
//	    heosprotocol.WithFailover(true),
//	)
//	if err := conn.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Disconnect()
//
//	msg, err := conn.Command(ctx, heosprotocol.NewGetVolumeCommand(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	level, _ := msg.ParamInt(heosprotocol.ParamLevel)
//
// # Events
//
// Lifecycle notifications and device events are sent on the connection's
// dispatcher:
//
//	conn.Dispatcher().Connect(heosprotocol.SignalEvent, func(ctx context.Context, ev any) error {
//	    msg := ev.(*heosprotocol.Message)
//	    fmt.Println(msg.Command(), msg.Params())
//	    return nil
//	})
//
//	conn.Dispatcher().Connect(heosprotocol.SignalDisconnected, func(ctx context.Context, ev any) error {
//	    if ev.(heosprotocol.DisconnectedEvent).DueToError {
//	        fmt.Println("connection lost")
//	    }
//	    return nil
//	})
//
// Events must be enabled on the device with
// NewRegisterForChangeEventsCommand(true).
//
// # Errors
//
// Command returns a *CommandError when the command could not be sent or
// answered (match with ErrNotConnected, ErrTimeout, ErrConnectionLost) and
// a *CommandFailedError when the device rejected it. Authentication
// failures match ErrAuthentication:
//
//	if errors.Is(err, heosprotocol.ErrAuthentication) {
//	    // sign in again
//	}
package heosprotocol
