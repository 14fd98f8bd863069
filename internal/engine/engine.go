package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"groupnet-service/internal/models"
)

// Engine holds the authoritative local copy of all groups, channels, posts,
// messages and profiles, and enforces every membership, connection and
// visibility rule. A single RWMutex serializes mutations; every mutating
// operation validates all of its preconditions before the first write, so
// an error return guarantees the state is unchanged.
type Engine struct {
	mu sync.RWMutex

	profiles map[string]models.Profile
	groups   map[string]*groupState

	channels      map[string]models.InterChannel
	channelByPair map[pairKey]string

	posts   []models.Post
	postIDs map[string]struct{}

	messages   []models.Message
	messageIDs map[string]struct{}

	now   func() time.Time
	newID func() string
}

// groupState is the internal mutable form of a group. The exported
// models.Group is always a copy built from it.
type groupState struct {
	id        string
	name      string
	avatarRef string
	adminID   string
	createdAt time.Time

	members     map[string]struct{}
	pendingJoin map[string]struct{}
	connections map[string]struct{}

	// pendingConnections holds the ids of groups that requested a
	// connection to this group and await this group's admin.
	pendingConnections map[string]struct{}
}

type pairKey struct {
	a, b string
}

// newPairKey normalizes an unordered group pair.
func newPairKey(g1, g2 string) pairKey {
	if g2 < g1 {
		g1, g2 = g2, g1
	}
	return pairKey{a: g1, b: g2}
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		profiles:      make(map[string]models.Profile),
		groups:        make(map[string]*groupState),
		channels:      make(map[string]models.InterChannel),
		channelByPair: make(map[pairKey]string),
		postIDs:       make(map[string]struct{}),
		messageIDs:    make(map[string]struct{}),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// UpsertProfile stores or replaces a user profile.
func (e *Engine) UpsertProfile(p models.Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles[p.ID] = p
}

// Profile returns the profile for a user id.
func (e *Engine) Profile(userID string) (models.Profile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.profiles[userID]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

// CreateGroup registers a new group. The creator becomes its admin and its
// first (and so far only) member.
func (e *Engine) CreateGroup(name, avatarRef, adminID string) models.Group {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &groupState{
		id:                 e.newID(),
		name:               name,
		avatarRef:          avatarRef,
		adminID:            adminID,
		createdAt:          e.now().UTC(),
		members:            map[string]struct{}{adminID: {}},
		pendingJoin:        make(map[string]struct{}),
		connections:        make(map[string]struct{}),
		pendingConnections: make(map[string]struct{}),
	}
	e.groups[g.id] = g
	return g.snapshot()
}

// Group returns a copy of a single group.
func (e *Engine) Group(groupID string) (models.Group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.groups[groupID]
	if !ok {
		return models.Group{}, ErrGroupNotFound
	}
	return g.snapshot(), nil
}

// Channel returns a copy of a single inter-group channel.
func (e *Engine) Channel(channelID string) (models.InterChannel, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ch, ok := e.channels[channelID]
	if !ok {
		return models.InterChannel{}, ErrChannelNotFound
	}
	return ch, nil
}

// snapshot builds an exported copy of the group with sorted sets.
func (g *groupState) snapshot() models.Group {
	return models.Group{
		ID:                 g.id,
		Name:               g.name,
		AvatarRef:          g.avatarRef,
		AdminID:            g.adminID,
		CreatedAt:          g.createdAt,
		Members:            sortedKeys(g.members),
		PendingJoin:        sortedKeys(g.pendingJoin),
		Connections:        sortedKeys(g.connections),
		PendingConnections: sortedKeys(g.pendingConnections),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *groupState) isMember(userID string) bool {
	_, ok := g.members[userID]
	return ok
}
