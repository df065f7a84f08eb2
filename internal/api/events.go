package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/faseelanwar-cpu/interview-coach/internal/agent"
	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/interview"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	outboxSize   = 64
)

// eventMessage is a JSON frame on the events socket. Down: "state" and
// "question_audio" (followed by one binary WAV frame). Up: "stop",
// "playback_finished" and "mime".
type eventMessage struct {
	Type     string         `json:"type"`
	Session  *interviewView `json:"session,omitempty"`
	Seq      int            `json:"seq,omitempty"`
	MIMEType string         `json:"mimeType,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type frame struct {
	kind int
	data []byte
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	// the session token is the access check
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventStream pumps session state and question audio to one socket and
// feeds recorded audio back into the interview
type eventStream struct {
	conn *websocket.Conn
	li   *agent.LiveInterview

	out       chan frame
	closeOnce sync.Once
	closed    chan struct{}
	mimeType  string
}

func (s *Server) handleEvents(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	mime := c.Query("mime")
	if mime == "" {
		mime = "audio/webm"
	}
	es := &eventStream{
		conn:     conn,
		li:       li,
		out:      make(chan frame, outboxSize),
		closed:   make(chan struct{}),
		mimeType: mime,
	}
	es.run()
}

func (es *eventStream) run() {
	defer es.conn.Close()

	unsubState := es.li.Subscribe(es.sendState)
	defer unsubState()
	unsubAudio := es.li.SubscribeAudio(es.sendAudio)
	defer unsubAudio()

	s := es.li.Snapshot()
	es.sendState(s)
	if s.Status == interview.StatusPlayingQuestion {
		if clip, seq, ok := es.li.QuestionAudio(); ok {
			es.sendAudio(seq, clip)
		}
	}

	go es.readLoop()
	es.writeLoop()
}

// enqueue never blocks; it is called from the interview's own goroutine
func (es *eventStream) enqueue(f frame) bool {
	select {
	case <-es.closed:
		return false
	default:
	}
	select {
	case es.out <- f:
		return true
	default:
		log.Printf("Events for interview %s are backing up, dropping connection", es.li.ID)
		es.close()
		return false
	}
}

func (es *eventStream) sendJSON(msg eventMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode event: %v", err)
		return false
	}
	return es.enqueue(frame{kind: websocket.TextMessage, data: data})
}

func (es *eventStream) sendState(s interview.Session) {
	v := viewOf(s)
	es.sendJSON(eventMessage{Type: "state", Session: &v})
}

func (es *eventStream) sendAudio(seq int, clip audio.Clip) {
	if es.sendJSON(eventMessage{Type: "question_audio", Seq: seq, MIMEType: "audio/wav"}) {
		es.enqueue(frame{kind: websocket.BinaryMessage, data: clip.WAV()})
	}
}

func (es *eventStream) close() {
	es.closeOnce.Do(func() { close(es.closed) })
}

func (es *eventStream) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	done := es.li.Done()
	for {
		select {
		case f := <-es.out:
			if err := es.write(f.kind, f.data); err != nil {
				es.close()
				return
			}
		case <-done:
			// flush the final state, then hang up
			es.drain()
			_ = es.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview ended"))
			es.close()
			return
		case <-ping.C:
			if err := es.write(websocket.PingMessage, nil); err != nil {
				es.close()
				return
			}
		case <-es.closed:
			return
		}
	}
}

func (es *eventStream) drain() {
	for {
		select {
		case f := <-es.out:
			if err := es.write(f.kind, f.data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (es *eventStream) write(kind int, data []byte) error {
	_ = es.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return es.conn.WriteMessage(kind, data)
}

func (es *eventStream) readLoop() {
	defer es.close()
	for {
		kind, data, err := es.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ws read error for interview %s: %v", es.li.ID, err)
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if err := es.li.WriteAudio(es.mimeType, data); err != nil {
				es.sendJSON(eventMessage{Type: "error", Error: err.Error()})
			}
		case websocket.TextMessage:
			es.handleCommand(data)
		}
	}
}

func (es *eventStream) handleCommand(data []byte) {
	var msg eventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		es.sendJSON(eventMessage{Type: "error", Error: "invalid message"})
		return
	}

	switch strings.ToLower(msg.Type) {
	case "stop":
		if err := es.li.StopRecording(); err != nil {
			es.sendJSON(eventMessage{Type: "error", Error: err.Error()})
		}
	case "playback_finished":
		es.li.PlaybackFinished()
	case "mime":
		if msg.MIMEType != "" {
			es.mimeType = msg.MIMEType
		}
	default:
		es.sendJSON(eventMessage{Type: "error", Error: "unknown message type " + msg.Type})
	}
}
