package engine

import "groupnet-service/internal/models"

// RequestConnect proposes a connection from one group to another. Any
// member of the proposing group may do so, not only its admin. Repeating a
// proposal while it is still pending is a no-op.
func (e *Engine) RequestConnect(fromGroupID, toGroupID, actingUserID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fromGroupID == toGroupID {
		return ErrSelfConnection
	}
	from, ok := e.groups[fromGroupID]
	if !ok {
		return ErrGroupNotFound
	}
	to, ok := e.groups[toGroupID]
	if !ok {
		return ErrGroupNotFound
	}
	if !from.isMember(actingUserID) {
		return ErrNotAMember
	}
	if _, connected := from.connections[toGroupID]; connected {
		return ErrAlreadyConnected
	}

	to.pendingConnections[fromGroupID] = struct{}{}
	return nil
}

// ApproveConnect lets the target group's admin accept a pending connection
// request. On success the connection becomes symmetric, the pending entry
// disappears from both directions, and the shared InterChannel for the pair
// exists exactly once: approving an already-channelled pair returns the
// existing channel instead of minting a duplicate.
func (e *Engine) ApproveConnect(targetGroupID, fromGroupID, actingUserID string) (models.InterChannel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.groups[targetGroupID]
	if !ok {
		return models.InterChannel{}, ErrGroupNotFound
	}
	from, ok := e.groups[fromGroupID]
	if !ok {
		return models.InterChannel{}, ErrGroupNotFound
	}
	if actingUserID != target.adminID {
		return models.InterChannel{}, ErrNotAuthorized
	}
	if _, pending := target.pendingConnections[fromGroupID]; !pending {
		return models.InterChannel{}, ErrNoSuchRequest
	}

	delete(target.pendingConnections, fromGroupID)
	delete(from.pendingConnections, targetGroupID)
	target.connections[fromGroupID] = struct{}{}
	from.connections[targetGroupID] = struct{}{}

	// Lookup by unordered pair, not by id, so re-approval cannot create a
	// second channel.
	key := newPairKey(targetGroupID, fromGroupID)
	if id, ok := e.channelByPair[key]; ok {
		return e.channels[id], nil
	}
	ch := models.InterChannel{
		ID:        e.newID(),
		GroupA:    key.a,
		GroupB:    key.b,
		CreatedAt: e.now().UTC(),
	}
	e.channels[ch.ID] = ch
	e.channelByPair[key] = ch.ID
	return ch, nil
}

// PendingConnections returns the connection request queue of a group. Only
// the admin may see it.
func (e *Engine) PendingConnections(groupID, actingUserID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if actingUserID != g.adminID {
		return nil, ErrNotAuthorized
	}
	return sortedKeys(g.pendingConnections), nil
}

// ChannelsFor returns the inter-group channels the user can read, i.e.
// those whose pair includes at least one group the user belongs to.
func (e *Engine) ChannelsFor(userID string) []models.InterChannel {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []models.InterChannel
	for _, ch := range e.channels {
		if e.userInPairLocked(userID, ch) {
			out = append(out, ch)
		}
	}
	sortChannels(out)
	return out
}

func (e *Engine) userInPairLocked(userID string, ch models.InterChannel) bool {
	if g, ok := e.groups[ch.GroupA]; ok && g.isMember(userID) {
		return true
	}
	if g, ok := e.groups[ch.GroupB]; ok && g.isMember(userID) {
		return true
	}
	return false
}
