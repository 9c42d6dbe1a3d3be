/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package connection

import "github.com/nabbar/uvhttpd/websocket"

// WebSocketHandlers are the application callbacks a PROTOCOL_UPGRADED
// connection dispatches complete messages and PONG frames to. There is no
// close or error callback: the connection answers PING and CLOSE frames
// itself, and the connect step is Dependencies.Upgrade.
type WebSocketHandlers struct {
	OnMessage func(opcode websocket.Opcode, payload []byte) error
	OnPong    func(payload []byte) error
}

// SetWebSocketHandlers installs h for this connection's upgraded session.
// Call it from Dependencies.Upgrade, before the first frame can arrive.
func (c *Conn) SetWebSocketHandlers(h WebSocketHandlers) {
	c.wsHandlers = h
}

func (c *Conn) wsCallbacks() websocket.MessageCallbacks {
	return websocket.MessageCallbacks{
		OnMessage: func(opcode websocket.Opcode, payload []byte) error {
			if c.wsHandlers.OnMessage == nil {
				return nil
			}
			return c.wsHandlers.OnMessage(opcode, payload)
		},
		OnPing: func(payload []byte) error {
			return c.sendFrame(websocket.Frame{Fin: true, Opcode: websocket.OpcodePong, Payload: payload})
		},
		OnPong: func(payload []byte) error {
			if c.wsHandlers.OnPong == nil {
				return nil
			}
			return c.wsHandlers.OnPong(payload)
		},
		OnClose: func(code int, reason string) error {
			if !c.closeSent {
				_ = c.sendFrame(websocket.Frame{Fin: true, Opcode: websocket.OpcodeClose, Payload: websocket.BuildClosePayload(code, reason)})
				c.closeSent = true
			}
			c.enterClosing()
			return nil
		},
	}
}

func (c *Conn) sendFrame(f websocket.Frame) error {
	return c.transport.Write(websocket.Build(f))
}

// SendMessage writes a single, unfragmented text or binary frame.
// Server-sent frames are never masked (spec §4.6).
func (c *Conn) SendMessage(opcode websocket.Opcode, payload []byte) error {
	return c.sendFrame(websocket.Frame{Fin: true, Opcode: opcode, Payload: payload})
}

// SendPing implements websocket.Peer for the heartbeat registry.
func (c *Conn) SendPing(payload []byte) error {
	return c.sendFrame(websocket.Frame{Fin: true, Opcode: websocket.OpcodePing, Payload: payload})
}

// Close implements websocket.Peer: it sends a CLOSE frame with code/reason
// (unless one was already sent) and transitions the connection to CLOSING.
func (c *Conn) Close(code int, reason string) error {
	var err error
	if !c.closeSent {
		err = c.sendFrame(websocket.Frame{Fin: true, Opcode: websocket.OpcodeClose, Payload: websocket.BuildClosePayload(code, reason)})
		c.closeSent = true
	}
	c.enterClosing()
	return err
}

// closeWebSocket is the internal helper for protocol violations detected
// by this connection itself (spec §4.9: "WebSocket protocol violation:
// close frame with the defined code, then CLOSING").
func (c *Conn) closeWebSocket(code int, reason string) {
	_ = c.Close(code, reason)
}
