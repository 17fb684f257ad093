/*
Package viewer streams PTY sessions to WebSocket clients.

A viewer connects to GET /terminals/:id/ws. The server answers with a single
replay frame holding the buffered history, then forwards raw output chunks
as data frames in arrival order, and an exit frame when the process ends.
Replay and live stream come from one atomic attach, so nothing is lost or
repeated between them.

Outbound frames:

	{"type":"replay","session_id":"sess_...","lines":[...],"scrollback":3,"max_lines":1000,"status":"running"}
	{"type":"data","payload":"ls\r\n"}
	{"type":"exit","status":"finished","exit_code":0}
	{"type":"error","message":"..."}
	{"type":"pong"}

Inbound frames:

	{"type":"input","data":"ls","newline":true}
	{"type":"resize","cols":120,"rows":40}
	{"type":"ping"}

A viewer whose queue overflows is disconnected with close code 1013 rather
than shown a stream with gaps. Disconnecting never affects the session.
*/
package viewer
