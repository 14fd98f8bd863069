package engine

// RequestJoin records a user's intent to join a group. Re-requesting while
// already pending is a no-op, not an error; requesting as an existing
// member fails with ErrAlreadyMember. Membership itself is untouched.
func (e *Engine) RequestJoin(groupID, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	if g.isMember(userID) {
		return ErrAlreadyMember
	}
	g.pendingJoin[userID] = struct{}{}
	return nil
}

// ApproveJoin moves one user from the pending queue into the member set.
// Only the group admin may approve, and only a request that actually exists
// can be approved; each call resolves exactly one user.
func (e *Engine) ApproveJoin(groupID, userID, actingUserID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	if actingUserID != g.adminID {
		return ErrNotAuthorized
	}
	if _, pending := g.pendingJoin[userID]; !pending {
		return ErrNoSuchRequest
	}

	delete(g.pendingJoin, userID)
	g.members[userID] = struct{}{}
	return nil
}

// PendingJoins returns the join queue of a group. Only the admin may see it.
func (e *Engine) PendingJoins(groupID, actingUserID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if actingUserID != g.adminID {
		return nil, ErrNotAuthorized
	}
	return sortedKeys(g.pendingJoin), nil
}
