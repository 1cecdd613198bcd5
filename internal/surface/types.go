package surface

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/codemate/server/internal/editor"
	"codeberg.org/codemate/server/internal/history"
	"codeberg.org/codemate/server/internal/resolver"
)

// inbound message types (surface -> controller)
const (
	// selects the active provider for subsequent turns
	TypeSetProvider = "setProvider"

	// a user chat message with attached context
	TypeUserMessage = "userMessage"

	// drives the preview/apply flow for a proposed file edit
	TypePreviewEdit = "previewEdit"

	// sends the active file as a user message, no provider round-trip
	TypeSendCurrentFile = "sendCurrentFile"

	// sends the active selection as a user message
	TypeSendSelection = "sendSelection"

	// sends workspace metadata as a user message
	TypeSendWorkspaceInfo = "sendWorkspaceInfo"

	// attach the active file as a context bubble
	TypeAddCurrentFileContext = "addCurrentFileContext"

	// attach the active selection as a context bubble
	TypeAddSelectionContext = "addSelectionContext"

	// attach workspace metadata as a context bubble
	TypeAddWorkspaceContext = "addWorkspaceContext"

	// asks for the available context sources
	TypeShowContextMenu = "showContextMenu"

	// asks for the current history snapshot
	TypeRequestHistory = "requestHistory"

	// asks for @-mention file completions
	TypeRequestFileSuggestions = "requestFileSuggestions"

	// attaches a picked file as a context bubble
	TypeAddFileToContext = "addFileToContext"

	// applies a code block to the selection or the active file
	TypeApplyInline = "applyInline"

	// reports the surface's view of editor focus and selection
	TypeEditorState = "editorState"

	// keepalive from the surface
	TypePing = "ping"
)

// outbound message types (controller -> surface)
const (
	TypeHistory             = "history"
	TypeShowFileSuggestions = "showFileSuggestions"
	TypeInsertLabel         = "insertLabel"
	TypeAddContext          = "addContext"
	TypeContextMenu         = "contextMenu"
	TypeEditPreview         = "editPreview"
	TypeEditProposal        = "editProposal"
	TypeError               = "error"
	TypePong                = "pong"
	TypeServerShutdown      = "serverShutdown"
)

// surface kinds; both are symmetric sinks/sources of the same messages
const (
	KindPanel      = "panel"
	KindDetachable = "detachable"
)

// connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512 KB
)

var ErrConnectionClosed = errors.New("connection closed")

// represents a message exchanged with a surface
type Message struct {
	Type      string          `json:"type"`
	SurfaceID string          `json:"-"` // internal only, never sent to surfaces
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// builds a message with a marshaled payload
func NewMessage(msgType string, payload any) (*Message, error) {
	msg := &Message{
		Type:      msgType,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		msg.Payload = data
	}

	return msg, nil
}

type SetProviderPayload struct {
	Provider string `json:"provider"`
}

type UserMessagePayload struct {
	Text             string                 `json:"text"`
	ContextItems     []resolver.ContextItem `json:"contextItems,omitempty"`
	InlineReferences map[string]string      `json:"inlineReferences,omitempty"`
}

// preview/apply flow actions
const (
	EditActionDiff   = "diff"
	EditActionApply  = "apply"
	EditActionCancel = "cancel"
)

type PreviewEditPayload struct {
	FilePath   string `json:"filePath"`
	NewContent string `json:"newContent"`

	// diff (default), apply, or cancel
	Action string `json:"action,omitempty"`
}

type RequestFileSuggestionsPayload struct {
	Query     string `json:"query"`
	CursorPos int    `json:"cursorPos"`
}

type AddFileToContextPayload struct {
	FilePath string `json:"filePath"`
}

type ApplyInlinePayload struct {
	Target    string `json:"target"` // selection | current_file
	CodeBlock string `json:"codeBlock"`
}

type EditorStatePayload struct {
	ActiveFile string            `json:"activeFile"`
	Selection  *editor.Selection `json:"selection,omitempty"`
}

type HistoryPayload struct {
	History []history.Message `json:"history"`
}

type ShowFileSuggestionsPayload struct {
	Files     []string `json:"files"`
	CursorPos int      `json:"cursorPos"`
}

type InsertLabelPayload struct {
	Label       string               `json:"label"`
	ContextItem resolver.ContextItem `json:"contextItem"`
}

type AddContextPayload struct {
	ContextType string `json:"contextType"`
	Name        string `json:"name"`
	FullName    string `json:"fullName"`
	Content     string `json:"content"`
	Icon        string `json:"icon"`
}

type ContextMenuPayload struct {
	Sources []ContextMenuSource `json:"sources"`
}

type ContextMenuSource struct {
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	Available bool   `json:"available"`
}

type EditPreviewPayload struct {
	FilePath string `json:"filePath"`
	Diff     string `json:"diff"`
}

// an apply affordance recovered from an assistant reply
type EditProposalPayload struct {
	Path         string `json:"path,omitempty"`
	Code         string `json:"code"`
	InlineTarget string `json:"inlineTarget,omitempty"`
}

type ServerShutdownPayload struct {
	Reason string `json:"reason"`
}

// represents a connected presentation surface
type Surface struct {
	// unique identifier for this surface connection
	ID string

	// panel or detachable
	Kind string

	// websocket connection
	conn *websocket.Conn

	// hub reference for inbound message routing
	hub *Hub

	// buffered channel of outbound messages
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

// maintains the set of live surfaces and routes typed messages
type Hub struct {
	// registered surfaces by connection ID
	surfaces map[string]*Surface

	// register requests from surfaces
	Register chan *Surface

	// unregister requests from surfaces
	Unregister chan *Surface

	// inbound messages from surfaces awaiting dispatch
	Inbound chan *Message

	mu sync.RWMutex

	// message handlers for different message types
	handlers map[string]MessageHandler

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// callback invoked after a surface is registered
	onSurfaceRegistered func(s *Surface)
}

// processes a specific inbound message type
type MessageHandler func(hub *Hub, s *Surface, msg *Message) error
