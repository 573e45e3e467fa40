package emv

import (
	"context"
	"fmt"
	"time"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// ENGINE:
// The Engine drives a card through one full transaction: application
// selection, processing options, record reading, offline authentication,
// and cryptogram generation. Phases run in a fixed order; a phase that
// cannot produce its outputs (bad status word, missing input tag) leaves
// them absent and the machine moves on to whatever later phases can still
// execute. Only a transport failure stops the run, and even then the
// session keeps everything collected up to that point.

// Transport moves one command APDU to the card and returns the raw
// response, status word included. Implementations own framing and timeouts
// below the APDU layer; the engine bounds each call with the context.
type Transport interface {
	Transceive(ctx context.Context, command []byte) ([]byte, error)
}

// Decision is the terminal's requested cryptogram type, carried in P1 of
// GENERATE AC.
type Decision byte

const (
	RequestAAC  Decision = 0x00
	RequestTC   Decision = 0x40
	RequestARQC Decision = 0x80

	// requestCDABit in P1 asks the card to fold CDA into the cryptogram.
	requestCDABit byte = 0x10
)

// IssuerDecider resolves the post-authorization outcome for the second
// GENERATE AC after an ARQC. The engine has no issuer-host link, so the
// default is a stand-in that always approves; sessions produced with it
// carry SecondACSimulated.
type IssuerDecider func(s *Session) Decision

// Engine executes EMV transactions over an injected transport.
type Engine struct {
	transport Transport
	params    *TerminalParams
	decision  Decision
	timeout   time.Duration
	decider   IssuerDecider
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each card exchange. Zero disables the per-command
// deadline and leaves only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithDecision sets the terminal decision for the first GENERATE AC.
func WithDecision(d Decision) Option {
	return func(e *Engine) { e.decision = d }
}

// WithTerminalParams replaces the default terminal parameter store.
func WithTerminalParams(p *TerminalParams) Option {
	return func(e *Engine) { e.params = p }
}

// WithIssuerDecider installs a real post-authorization decision source,
// clearing the simulated marker on sessions that reach a second AC.
func WithIssuerDecider(f IssuerDecider) Option {
	return func(e *Engine) { e.decider = f }
}

// NewEngine creates a transaction engine over the given transport.
func NewEngine(transport Transport, opts ...Option) (*Engine, error) {
	e := &Engine{
		transport: transport,
		decision:  RequestARQC,
		timeout:   3 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.params == nil {
		params, err := NewTerminalParams(TransactionParameters{})
		if err != nil {
			return nil, fmt.Errorf("default terminal parameters: %w", err)
		}
		e.params = params
	}
	return e, nil
}

// Params exposes the terminal parameter store, letting callers adjust
// amounts or qualifiers between runs.
func (e *Engine) Params() *TerminalParams {
	return e.params
}

// Run executes one full transaction and always returns the session, even
// when a phase failed or the transport died mid-flight. Inspect
// Session.Completed and Session.FailureReason for the outcome.
func (e *Engine) Run(ctx context.Context) *Session {
	s := NewSession()
	client := iso7816.NewClient(&ctxTransmitter{ctx: ctx, transport: e.transport, timeout: e.timeout})

	phases := []struct {
		name string
		run  func(context.Context, *iso7816.Client, *Session) error
	}{
		{"SELECT", e.selectApplication},
		{"GPO", e.processingOptions},
		{"READ_RECORDS", e.readRecords},
		{"OFFLINE_AUTH", e.offlineAuth},
		{"GENERATE_AC", e.generateCryptogram},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			s.Fail(fmt.Sprintf("cancelled before %s: %v", phase.name, err))
			return s
		}
		if err := phase.run(ctx, client, s); err != nil {
			logger.Error("phase %s aborted: %v", phase.name, err)
			s.Fail(fmt.Sprintf("%s: %v", phase.name, err))
			return s
		}
	}

	s.Completed = true
	logger.Session(fmt.Sprintf("%X", s.AID), s.AuthMethod.String(),
		fmt.Sprintf("%X", s.Cryptogram), true)
	return s
}

// exchange sends one logical command, logs every physical round trip into
// the session, and returns the final response. A non-nil error means the
// transport failed and the run must stop; protocol-level failures come
// back as ordinary responses with their status word.
func (e *Engine) exchange(client *iso7816.Client, s *Session, phase string, cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	trace, err := client.Send(cmd)

	for _, tx := range trace {
		raw, encErr := tx.Command.Bytes()
		if encErr != nil {
			continue
		}
		var respBytes []byte
		var sw iso7816.StatusWord
		if tx.Response != nil {
			respBytes = tx.Response.Data
			sw = tx.Response.Status
		}
		logger.Protocol(">", phase, raw)
		logger.Protocol("<", phase, respBytes)
		s.LogExchange(phase, raw, respBytes, sw)
	}

	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	last := trace.Last()
	if last == nil || last.Response == nil {
		return nil, fmt.Errorf("transport: no response")
	}
	return last.Response, nil
}

// ctxTransmitter bridges the context-aware Transport into the Client's
// blocking Transmitter, applying the per-command deadline.
type ctxTransmitter struct {
	ctx       context.Context
	transport Transport
	timeout   time.Duration
}

func (t *ctxTransmitter) Transmit(cmd []byte) ([]byte, error) {
	ctx := t.ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.transport.Transceive(ctx, cmd)
}

// CLA values the engine issues commands under: 0x00 for interindustry
// (SELECT, READ RECORD, GET CHALLENGE, INTERNAL AUTHENTICATE) and 0x80 for
// the EMV proprietary commands (GPO, GENERATE AC).
var (
	clsStandard    = mustClass(0x00)
	clsProprietary = mustClass(0x80)
)

func mustClass(b byte) iso7816.Class {
	c, err := iso7816.NewClass(b)
	if err != nil {
		panic(err)
	}
	return c
}

func mustInstruction(code iso7816.InsCode) iso7816.Instruction {
	ins, err := iso7816.NewInstruction(code)
	if err != nil {
		panic(err)
	}
	return ins
}

// lookup builds the DOL value source for a phase: terminal parameters are
// authoritative, the session database backs them for card-sourced tags,
// and overrides win over both (the DDA challenge replaces the terminal's
// unpredictable number, for example).
func (e *Engine) lookup(s *Session, overrides map[string][]byte) Lookup {
	return func(tag string) ([]byte, bool) {
		if v, ok := overrides[tag]; ok {
			return v, true
		}
		if v, ok := e.params.Get(tag); ok {
			return v, true
		}
		return s.Get(tag)
	}
}
