package engine

import "groupnet-service/internal/models"

// Snapshot is the wholesale state loaded from the external record store.
// The engine does not merge concurrent edits from other sessions; it is
// refreshed by replacing everything it holds with a fresh snapshot.
type Snapshot struct {
	Profiles []models.Profile
	Groups   []models.Group
	Channels []models.InterChannel
	Posts    []models.Post
	Messages []models.Message
}

// Load replaces the engine's entire state with the snapshot.
func (e *Engine) Load(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.profiles = make(map[string]models.Profile, len(snap.Profiles))
	for _, p := range snap.Profiles {
		e.profiles[p.ID] = p
	}

	e.groups = make(map[string]*groupState, len(snap.Groups))
	for _, g := range snap.Groups {
		e.groups[g.ID] = newGroupState(g)
	}

	e.channels = make(map[string]models.InterChannel, len(snap.Channels))
	e.channelByPair = make(map[pairKey]string, len(snap.Channels))
	for _, ch := range snap.Channels {
		e.channels[ch.ID] = ch
		e.channelByPair[newPairKey(ch.GroupA, ch.GroupB)] = ch.ID
	}

	e.posts = make([]models.Post, 0, len(snap.Posts))
	e.postIDs = make(map[string]struct{}, len(snap.Posts))
	for _, p := range snap.Posts {
		if _, ok := e.postIDs[p.ID]; ok {
			continue
		}
		e.posts = append(e.posts, p)
		e.postIDs[p.ID] = struct{}{}
	}

	e.messages = make([]models.Message, 0, len(snap.Messages))
	e.messageIDs = make(map[string]struct{}, len(snap.Messages))
	for _, m := range snap.Messages {
		if _, ok := e.messageIDs[m.ID]; ok {
			continue
		}
		e.messages = append(e.messages, m)
		e.messageIDs[m.ID] = struct{}{}
	}
}

// MergeGroup replaces a single group record with an externally delivered
// copy, or registers it if unseen. The whole record is swapped at once so
// readers never observe a half-updated group.
func (e *Engine) MergeGroup(g models.Group) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups[g.ID] = newGroupState(g)
}

func newGroupState(g models.Group) *groupState {
	gs := &groupState{
		id:                 g.ID,
		name:               g.Name,
		avatarRef:          g.AvatarRef,
		adminID:            g.AdminID,
		createdAt:          g.CreatedAt,
		members:            make(map[string]struct{}, len(g.Members)),
		pendingJoin:        make(map[string]struct{}, len(g.PendingJoin)),
		connections:        make(map[string]struct{}, len(g.Connections)),
		pendingConnections: make(map[string]struct{}, len(g.PendingConnections)),
	}
	for _, id := range g.Members {
		gs.members[id] = struct{}{}
	}
	// The admin is a member from creation; tolerate snapshots that omit it.
	gs.members[g.AdminID] = struct{}{}
	for _, id := range g.PendingJoin {
		if _, member := gs.members[id]; member {
			continue
		}
		gs.pendingJoin[id] = struct{}{}
	}
	for _, id := range g.Connections {
		gs.connections[id] = struct{}{}
	}
	for _, id := range g.PendingConnections {
		gs.pendingConnections[id] = struct{}{}
	}
	return gs
}
