// Package proxy implements RuntimeProxy, a cloneable async facade over a
// synchronous Runtime: each mutating method constructs a command, sends it
// on the command channel along with a oneshot response channel, awaits the
// response, and maps it to a typed result. The proxy holds no state and no
// graph references — purely a channel facade. Nothing in the example pack
// hands out a channel-only facade for an otherwise-synchronous core (the
// tvarr's internal/service methods are plain synchronous calls), so this
// is built from the wire-format description directly, following the same
// mpsc-plus-oneshot shape tvarr already uses for its log streaming
// subscriber channels, generalized to request/response instead of
// fire-and-forget broadcast.
package proxy

import (
	"context"

	"github.com/tatolab/streamlib/internal/eventbus"
	"github.com/tatolab/streamlib/internal/ids"
	"github.com/tatolab/streamlib/internal/runtime"
)

// commandKind identifies which Runtime method a command dispatches to.
type commandKind int

const (
	cmdAddProcessor commandKind = iota
	cmdRemoveProcessor
	cmdConnect
	cmdDisconnect
	cmdStart
	cmdStop
	cmdGetState
	cmdUpdateConfig
)

// command is one request sent over the proxy's command channel, paired
// with a oneshot response channel only the pump closes.
type command struct {
	kind commandKind

	processorType string
	config        map[string]any
	processorID   ids.ID
	linkID        ids.ID
	fromProcessor ids.ID
	fromPort      string
	toProcessor   ids.ID
	toPort        string
	capacity      int

	response chan response
}

// response is the oneshot reply to a command.
type response struct {
	processorID ids.ID
	linkID      ids.ID
	state       runtime.Status
	err         error
}

// RuntimeProxy is a cloneable async facade: every exported method sends a
// command and blocks on ctx or the oneshot response, never touching the
// Runtime or its Compiler directly.
type RuntimeProxy struct {
	commands chan command
}

// New creates a RuntimeProxy whose command channel is drained by
// PollCommands against rt.
func New(bufferSize int) *RuntimeProxy {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &RuntimeProxy{commands: make(chan command, bufferSize)}
}

// PollCommands drains pending commands and applies them against rt,
// replying on each command's oneshot channel. Intended to be called from
// the runtime's main-thread event loop (or a platform idle callback); it
// is non-blocking once the channel is drained.
func PollCommands(ctx context.Context, rt *runtime.Runtime, p *RuntimeProxy) {
	for {
		select {
		case cmd := <-p.commands:
			cmd.response <- execute(ctx, rt, cmd)
		default:
			return
		}
	}
}

// Run drives PollCommands in a loop until ctx is done, for callers that
// want a dedicated pump goroutine rather than hooking into an existing
// event loop.
func Run(ctx context.Context, rt *runtime.Runtime, p *RuntimeProxy) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-p.commands:
			cmd.response <- execute(ctx, rt, cmd)
		}
	}
}

func execute(ctx context.Context, rt *runtime.Runtime, cmd command) response {
	switch cmd.kind {
	case cmdAddProcessor:
		id, err := rt.AddProcessor(ctx, cmd.processorType, cmd.config)
		return response{processorID: id, err: err}
	case cmdRemoveProcessor:
		return response{err: rt.RemoveProcessor(ctx, cmd.processorID)}
	case cmdConnect:
		id, err := rt.Connect(ctx, cmd.fromProcessor, cmd.fromPort, cmd.toProcessor, cmd.toPort, cmd.capacity)
		return response{linkID: id, err: err}
	case cmdDisconnect:
		return response{err: rt.Disconnect(ctx, cmd.linkID)}
	case cmdStart:
		return response{err: rt.Start(ctx)}
	case cmdStop:
		return response{err: rt.Stop(ctx)}
	case cmdGetState:
		return response{state: rt.GetState()}
	case cmdUpdateConfig:
		return response{err: rt.UpdateConfig(ctx, cmd.processorID, cmd.config)}
	default:
		return response{}
	}
}

func (p *RuntimeProxy) send(ctx context.Context, cmd command) (response, error) {
	cmd.response = make(chan response, 1)
	select {
	case p.commands <- cmd:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-cmd.response:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// AddProcessor requests a new processor of processorType with cfg.
func (p *RuntimeProxy) AddProcessor(ctx context.Context, processorType string, cfg map[string]any) (ids.ID, error) {
	resp, err := p.send(ctx, command{kind: cmdAddProcessor, processorType: processorType, config: cfg})
	if err != nil {
		return "", err
	}
	return resp.processorID, resp.err
}

// RemoveProcessor requests removal of an existing processor.
func (p *RuntimeProxy) RemoveProcessor(ctx context.Context, id ids.ID) error {
	resp, err := p.send(ctx, command{kind: cmdRemoveProcessor, processorID: id})
	if err != nil {
		return err
	}
	return resp.err
}

// Connect requests a new link between two processors' named ports.
func (p *RuntimeProxy) Connect(ctx context.Context, fromProcessor ids.ID, fromPort string, toProcessor ids.ID, toPort string, capacity int) (ids.ID, error) {
	resp, err := p.send(ctx, command{kind: cmdConnect, fromProcessor: fromProcessor, fromPort: fromPort, toProcessor: toProcessor, toPort: toPort, capacity: capacity})
	if err != nil {
		return "", err
	}
	return resp.linkID, resp.err
}

// Disconnect requests removal of an existing link.
func (p *RuntimeProxy) Disconnect(ctx context.Context, linkID ids.ID) error {
	resp, err := p.send(ctx, command{kind: cmdDisconnect, linkID: linkID})
	if err != nil {
		return err
	}
	return resp.err
}

// Start requests the runtime transition to Started.
func (p *RuntimeProxy) Start(ctx context.Context) error {
	resp, err := p.send(ctx, command{kind: cmdStart})
	if err != nil {
		return err
	}
	return resp.err
}

// Stop requests the runtime transition to Stopped.
func (p *RuntimeProxy) Stop(ctx context.Context) error {
	resp, err := p.send(ctx, command{kind: cmdStop})
	if err != nil {
		return err
	}
	return resp.err
}

// GetState requests the runtime's current Status.
func (p *RuntimeProxy) GetState(ctx context.Context) (runtime.Status, error) {
	resp, err := p.send(ctx, command{kind: cmdGetState})
	if err != nil {
		return 0, err
	}
	return resp.state, resp.err
}

// UpdateConfig requests a hot config update on an existing processor.
func (p *RuntimeProxy) UpdateConfig(ctx context.Context, id ids.ID, cfg map[string]any) error {
	resp, err := p.send(ctx, command{kind: cmdUpdateConfig, processorID: id, config: cfg})
	if err != nil {
		return err
	}
	return resp.err
}

// SubscribeEvents is a direct pass-through to the runtime's event bus: it
// does not need to go through the command channel since subscribing is a
// read-only, non-mutating operation against a structure (the bus) that is
// itself already concurrency-safe.
func SubscribeEvents(ctx context.Context, rt *runtime.Runtime, topic string) (string, <-chan eventbus.Event) {
	return rt.SubscribeEvents(ctx, topic)
}
