// Package form is the metadata-driven form engine: given an entity's
// schema it derives an editable control layout, validates required
// fields, and builds create/update payloads — full-payload creates,
// diff-only updates — without any entity-specific code.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/reference"
	"github.com/matthewbaird/metaform/internal/schema"
	"github.com/matthewbaird/metaform/internal/session"
)

// Phase is the form instance's lifecycle state.
//
//	LoadingMeta → (MetaError | Ready) → Submitting → (Ready | Closed)
//
// Ready is re-entrant: a failed or rejected submit returns to it with
// form state untouched. MetaError is terminal for the screen.
type Phase int

const (
	PhaseLoadingMeta Phase = iota
	PhaseMetaError
	PhaseReady
	PhaseSubmitting
	PhaseClosed
)

// ParentContext scopes a child form opened from a parent record's
// sub-tab: the child's foreign key is injected into create payloads.
type ParentContext struct {
	Entity   string
	ID       any
	MappedBy string
}

// Config wires a form engine instance.
type Config struct {
	Entity    string
	Provider  *schema.Provider
	Client    *api.Client
	Resolver  *reference.Resolver
	Console   *session.Context
	Parent    *ParentContext
	OnSuccess func(meta.Record)
}

// Engine orchestrates one form instance: schema load, reference load,
// layout, validation, and diff-based submit.
type Engine struct {
	cfg   Config
	log   *zap.Logger
	meta  *meta.EntityMeta
	state *State

	// phaseMu guards phase: Submit must be mutually exclusive with
	// itself even when a second attempt races the one in flight.
	phaseMu sync.Mutex
	phase   Phase

	// existingID is non-nil on the edit path.
	existingID any

	refWG sync.WaitGroup
}

// New creates an Engine; call Init before anything else.
func New(cfg Config) *Engine {
	if cfg.Console == nil {
		cfg.Console = session.New(nil, nil, nil)
	}
	return &Engine{
		cfg:   cfg,
		log:   cfg.Console.Logger.Named("form").With(zap.String("entity", cfg.Entity)),
		state: NewState(),
		phase: PhaseLoadingMeta,
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.phaseMu.Lock()
	e.phase = p
	e.phaseMu.Unlock()
}

// beginSubmit atomically moves Ready to Submitting.
func (e *Engine) beginSubmit() error {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()
	switch e.phase {
	case PhaseSubmitting:
		return ErrSubmitInFlight
	case PhaseReady:
		e.phase = PhaseSubmitting
		return nil
	default:
		return ErrNotReady
	}
}

// State exposes the form state for controls and tests.
func (e *Engine) State() *State { return e.state }

// Meta returns the loaded schema, nil before Init succeeds.
func (e *Engine) Meta() *meta.EntityMeta { return e.meta }

// Init loads the schema and seeds form state. A non-nil existing record
// switches the form to the edit path and snapshots the seed as the diff
// baseline. Schema failure is fatal to the form: the phase becomes
// MetaError and the only escape is Close.
func (e *Engine) Init(ctx context.Context, existing meta.Record) error {
	e.setPhase(PhaseLoadingMeta)
	m, err := e.cfg.Provider.EntityMeta(ctx, e.cfg.Entity)
	if err != nil {
		e.setPhase(PhaseMetaError)
		e.cfg.Console.Notifier.Error("Metadata unavailable for " + e.cfg.Entity)
		return fmt.Errorf("initializing %s form: %w", e.cfg.Entity, err)
	}
	e.meta = m
	e.state.Seed(m, existing)
	if existing != nil {
		e.existingID = existing[m.PrimaryKey]
	}
	e.setPhase(PhaseReady)
	return nil
}

// LoadReferences starts one independent fetch per non-collection ref
// field. Fetches are fire-and-forget: each writes only its own field's
// option slot, and rendering proceeds with empty lists until they land.
func (e *Engine) LoadReferences(ctx context.Context) {
	if e.meta == nil || e.cfg.Resolver == nil {
		return
	}
	for _, f := range e.meta.ScalarFields() {
		if !f.IsScalarRef() {
			continue
		}
		name, target := f.Name, f.RefEntity()
		e.refWG.Add(1)
		go func() {
			defer e.refWG.Done()
			e.cfg.Resolver.Resolve(ctx, name, target)
		}()
	}
}

// WaitReferences blocks until in-flight reference fetches finish.
// Rendering never needs this; tests and the CLI do.
func (e *Engine) WaitReferences() {
	e.refWG.Wait()
}

// Layout partitions the entity's controls into the primary grid, the
// collapsed additional-details section, and the file upload area.
func (e *Engine) Layout() Layout {
	if e.meta == nil {
		return Layout{}
	}
	return buildLayout(e.meta, e.state, e.cfg.Resolver)
}

// Control returns the bound control for one field, or nil.
func (e *Engine) Control(name string) *Control {
	if e.meta == nil {
		return nil
	}
	f := e.meta.Field(name)
	if f == nil || f.Collection {
		return nil
	}
	c := newControl(*f, e.state, e.cfg.Resolver)
	return &c
}

// Validate applies the required-field gate: any non-nullable field with
// an empty current value gets a "<Label> is required" error. Corrected
// fields have their errors cleared. Returns true when submission may
// proceed.
func (e *Engine) Validate() bool {
	ok := true
	for _, f := range e.meta.ScalarFields() {
		if f.Type == meta.TypeFile {
			continue
		}
		if !f.Nullable && isEmpty(e.state.Value(f.Name)) {
			e.state.SetError(f.Name, f.Label()+" is required")
			ok = false
			continue
		}
		e.state.ClearError(f.Name)
	}
	return ok
}

type submitBody struct {
	InputData map[string]any `json:"input_data"`
}

// Submit validates and sends the create or update request. On the edit
// path a zero diff short-circuits with ErrNoChanges and no network
// call. A rejected submit keeps the form open with its state untouched
// and returns to Ready so the user can correct and resubmit.
func (e *Engine) Submit(ctx context.Context) (meta.Record, error) {
	if err := e.beginSubmit(); err != nil {
		return nil, err
	}
	if !e.Validate() {
		e.setPhase(PhaseReady)
		return nil, ErrValidation
	}

	plural := meta.Plural(e.cfg.Entity)

	var raw []byte
	var err error
	if e.existingID != nil {
		diff := changedFields(e.meta, e.state.Values(), e.state.Initial())
		if len(diff) == 0 {
			e.setPhase(PhaseReady)
			e.cfg.Console.Notifier.Info("No changes")
			return nil, ErrNoChanges
		}
		raw, err = e.cfg.Client.Put(ctx,
			fmt.Sprintf("%s/%v", plural, e.existingID),
			submitBody{InputData: diff})
	} else {
		payload := createPayload(e.meta, e.state.Values())
		if e.cfg.Parent != nil && e.cfg.Parent.MappedBy != "" {
			payload[e.cfg.Parent.MappedBy] = e.cfg.Parent.ID
		}
		raw, err = e.cfg.Client.Post(ctx, plural, submitBody{InputData: payload})
	}

	if err != nil {
		e.setPhase(PhaseReady)
		e.cfg.Console.Notifier.Error(errorMessage(err))
		e.log.Warn("submit rejected", zap.Error(err))
		return nil, err
	}

	rec, decErr := api.DecodeRecord(raw)
	if decErr != nil {
		e.log.Warn("submit response undecodable", zap.Error(decErr))
		rec = nil
	}
	e.setPhase(PhaseClosed)
	e.cfg.Console.Notifier.Success("Saved")
	if e.cfg.OnSuccess != nil {
		e.cfg.OnSuccess(rec)
	}
	return rec, nil
}

// Close abandons the form. Valid from any phase; it is the only exit
// from MetaError.
func (e *Engine) Close() {
	e.setPhase(PhaseClosed)
}

// errorMessage prefers the server-provided message, falling back to a
// generic one.
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong. Please try again."
}
