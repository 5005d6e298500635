// Package authz decides whether a PIN may perform a mutating action.
//
// Rules are CEL expressions loaded from an embedded YAML document. A decision
// never fails: any lookup error, unknown action or unresolved subject is a
// deny.
package authz

import (
	"context"
	"log/slog"

	"github.com/dukerupert/choreboss/internal/metrics"
	"github.com/dukerupert/choreboss/internal/model"
)

type Action string

const (
	CompleteChore  Action = "complete_chore"
	AddPerson      Action = "add_person"
	EditPerson     Action = "edit_person"
	ChangeSequence Action = "change_sequence"
	DeleteChore    Action = "delete_chore"
	DeletePerson   Action = "delete_person"
	EditChore      Action = "edit_chore"
	SetAdmin       Action = "set_admin"
)

// ParseAction maps a wire name to an Action. Unknown names report false.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case CompleteChore, AddPerson, EditPerson, ChangeSequence, DeleteChore, DeletePerson, EditChore, SetAdmin:
		return a, true
	}
	return "", false
}

// Request is one authorization question. ChoreID and PersonID are the
// subject references; which one matters depends on the action.
type Request struct {
	Action   Action
	PIN      string
	ChoreID  int64
	PersonID int64
}

// People is the read side of the person store the policy needs.
type People interface {
	Credentials(ctx context.Context) ([]model.Credential, error)
	GetByID(ctx context.Context, id int64) (*model.Person, error)
}

// Chores is the read side of the chore store the policy needs.
type Chores interface {
	GetByID(ctx context.Context, id int64) (*model.Chore, error)
}

// Verifier checks a secret against a stored digest.
type Verifier interface {
	Verify(secret, digest string) bool
}

type Policy struct {
	people   People
	chores   Chores
	verifier Verifier
	rules    map[Action]rule
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Policy)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Policy) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// New builds a Policy from the embedded rule set.
func New(people People, chores Chores, verifier Verifier, opts ...Option) (*Policy, error) {
	return NewFromYAML(defaultPolicy, people, chores, verifier, opts...)
}

// NewFromYAML builds a Policy from a caller-supplied rule document.
func NewFromYAML(doc []byte, people People, chores Chores, verifier Verifier, opts ...Option) (*Policy, error) {
	rules, err := compileRules(doc)
	if err != nil {
		return nil, err
	}
	p := &Policy{
		people:   people,
		chores:   chores,
		verifier: verifier,
		rules:    rules,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type facts struct {
	adminMatch    bool
	assigneeMatch bool
	selfMatch     bool
	adminsExist   bool
}

// Authorize reports whether req.PIN may perform req.Action.
func (p *Policy) Authorize(ctx context.Context, req Request) bool {
	allowed := p.decide(ctx, req)
	p.metrics.AuthzDecision(string(req.Action), allowed)
	p.logger.Debug("authz decision",
		"action", req.Action,
		"chore_id", req.ChoreID,
		"person_id", req.PersonID,
		"allowed", allowed,
	)
	return allowed
}

func (p *Policy) decide(ctx context.Context, req Request) bool {
	r, ok := p.rules[req.Action]
	if !ok {
		p.logger.Debug("authz unknown action", "action", req.Action)
		return false
	}

	var assignee, target *int64
	switch r.subject {
	case SubjectChore:
		if req.ChoreID <= 0 {
			return false
		}
		chore, err := p.chores.GetByID(ctx, req.ChoreID)
		if err != nil {
			p.logger.Error("authz chore lookup", "chore_id", req.ChoreID, "error", err)
			return false
		}
		if chore == nil {
			return false
		}
		assignee = chore.AssignedTo
	case SubjectPerson, SubjectOptionalPerson:
		if req.PersonID <= 0 {
			if r.subject == SubjectPerson {
				return false
			}
			break
		}
		person, err := p.people.GetByID(ctx, req.PersonID)
		if err != nil {
			p.logger.Error("authz person lookup", "person_id", req.PersonID, "error", err)
			return false
		}
		if person == nil {
			return false
		}
		target = &person.ID
	}

	creds, err := p.people.Credentials(ctx)
	if err != nil {
		p.logger.Error("authz credentials", "error", err)
		return false
	}
	f := p.collectFacts(creds, req.PIN, assignee, target)

	allowed, err := r.eval(f)
	if err != nil {
		p.logger.Error("authz evaluate", "action", req.Action, "error", err)
		return false
	}
	return allowed
}

// collectFacts makes one pass over every credential. Digests are salted, so
// the only way to find whose PIN this is is to try each relevant digest.
func (p *Policy) collectFacts(creds []model.Credential, pin string, assignee, target *int64) facts {
	var f facts
	for _, c := range creds {
		if c.IsAdmin {
			f.adminsExist = true
		}
		isAssignee := assignee != nil && *assignee == c.PersonID
		isTarget := target != nil && *target == c.PersonID
		if !c.IsAdmin && !isAssignee && !isTarget {
			continue
		}
		if f.adminMatch && !isAssignee && !isTarget {
			continue
		}
		if pin == "" || !p.verifier.Verify(pin, c.Digest) {
			continue
		}
		if c.IsAdmin {
			f.adminMatch = true
		}
		if isAssignee {
			f.assigneeMatch = true
		}
		if isTarget {
			f.selfMatch = true
		}
	}
	return f
}
