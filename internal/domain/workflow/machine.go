package workflow

import (
	"sort"
	"time"

	"studio-orders/internal/domain/orders"
)

type Action string

const (
	ActionConfirmPayment    Action = "confirm_payment"
	ActionStartProduction   Action = "start_production"
	ActionUploadDemos       Action = "upload_demos"
	ActionSelectVersion     Action = "select_version"
	ActionConfirmDirection  Action = "confirm_direction"
	ActionUploadRevision    Action = "upload_revision"
	ActionConfirmVersion    Action = "confirm_version"
	ActionRequestChanges    Action = "request_changes"
	ActionDeliverVersion    Action = "deliver_version"
	ActionApproveVersion    Action = "approve_version"
	ActionAddDeliverable    Action = "add_deliverable"
	ActionRemoveDeliverable Action = "remove_deliverable"
	ActionComplete          Action = "complete"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleSystem Role = "system"
)

// Effect names the ledger/counter work the engine performs for a rule.
type Effect int

const (
	EffectNone Effect = iota
	EffectStartProduction
	EffectAppendDemos
	EffectSelectVersion
	EffectConfirmDirection
	EffectAppendRevision
	EffectConfirmVersion
	EffectRequestChanges
	EffectAddDeliverable
	EffectRemoveDeliverable
	EffectComplete
)

type Audience int

const (
	AudienceClient Audience = iota
	AudienceAdmin
)

// Notice is the notification a rule emits after commit.
type Notice struct {
	Template string
	Audience Audience
}

// FileRef points at bytes already stored in the deliverable store.
type FileRef struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	FileType string `json:"file_type,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Payload carries the action-specific arguments of a transition.
type Payload struct {
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	VersionID       string     `json:"version_id,omitempty"`
	DeliverableID   string     `json:"deliverable_id,omitempty"`
	Files           []FileRef  `json:"files,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RevisionRequest string     `json:"revision_request,omitempty"`
}

// Snapshot is the state a guard decides on.
type Snapshot struct {
	Order        *orders.Order
	Deliverables int
	// Selected is the version currently selected or approved, if any.
	Selected *orders.Version
	// Latest is the newest version of the lane the client reviews.
	Latest *orders.Version
}

type Guard func(Snapshot, Payload) error

type Rule struct {
	From       orders.Status
	Action     Action
	Roles      []Role
	To         orders.Status
	Guard      Guard
	Effect     Effect
	Notify     *Notice
	Serialized bool
}

func (r Rule) SelfLoop() bool { return r.From == r.To }

func (r Rule) Allows(role Role) bool {
	for _, v := range r.Roles {
		if v == role {
			return true
		}
	}
	return false
}

type key struct {
	kind   orders.Kind
	from   orders.Status
	action Action
}

var table = map[key]Rule{}

func register(kind orders.Kind, rules ...Rule) {
	for _, r := range rules {
		k := key{kind, r.From, r.Action}
		if _, dup := table[k]; dup {
			panic("workflow: duplicate rule " + string(kind) + "/" + string(r.From) + "/" + string(r.Action))
		}
		if r.From.Terminal() {
			panic("workflow: rule leaving terminal status")
		}
		table[k] = r
	}
}

// Lookup resolves the rule for an action taken by role on an order of kind in status from.
func Lookup(kind orders.Kind, from orders.Status, action Action, role Role) (Rule, error) {
	r, ok := table[key{kind, from, action}]
	if !ok {
		return Rule{}, orders.Errorf(orders.ErrInvalidTransition,
			"%s is not allowed while the order is %s", action, from)
	}
	if !r.Allows(role) {
		return Rule{}, orders.Errorf(orders.ErrForbidden, "%s cannot %s", role, action)
	}
	return r, nil
}

// Available lists the actions role may attempt from status, ignoring guards.
func Available(kind orders.Kind, status orders.Status, role Role) []Action {
	var out []Action
	for k, r := range table {
		if k.kind == kind && k.from == status && r.Allows(role) {
			out = append(out, k.action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rules returns every rule of kind, for documentation and tests.
func Rules(kind orders.Kind) []Rule {
	var out []Rule
	for k, r := range table {
		if k.kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Check evaluates the rule's guard.
func (r Rule) Check(s Snapshot, p Payload) error {
	if r.Guard == nil {
		return nil
	}
	return r.Guard(s, p)
}
