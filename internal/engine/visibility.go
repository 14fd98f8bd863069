package engine

import (
	"sort"

	"groupnet-service/internal/models"
)

// Visibility is recomputed from current state on every read; nothing here
// caches derived results across mutations.

// VisibleGroups returns the groups the user belongs to. Another group's
// pending queues are never exposed through this path.
func (e *Engine) VisibleGroups(userID string) []models.Group {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []models.Group
	for _, g := range e.groups {
		if g.isMember(userID) {
			out = append(out, g.snapshot())
		}
	}
	sortGroups(out)
	return out
}

// AllGroups returns public summaries of every group, newest first. This
// backs the discover listing.
func (e *Engine) AllGroups() []models.GroupSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []models.GroupSummary
	for _, g := range e.groups {
		out = append(out, g.snapshot().Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FeedPosts returns the posts the user may see, newest first: posts of
// their own groups plus posts of groups directly connected to one of them.
// Connections are deliberately not transitive here; a group two hops away
// stays invisible.
func (e *Engine) FeedPosts(userID string) []models.Post {
	e.mu.RLock()
	defer e.mu.RUnlock()

	visible := make(map[string]struct{})
	for id, g := range e.groups {
		if !g.isMember(userID) {
			continue
		}
		visible[id] = struct{}{}
		for peer := range g.connections {
			visible[peer] = struct{}{}
		}
	}

	var out []models.Post
	for _, p := range e.posts {
		if _, ok := visible[p.GroupID]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GroupPosts returns a single group's posts, newest first, to a member or
// to a member of a directly connected group.
func (e *Engine) GroupPosts(groupID, userID string) ([]models.Post, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if !g.isMember(userID) && !e.memberOfPeerLocked(g, userID) {
		return nil, ErrNotAMember
	}

	var out []models.Post
	for _, p := range e.posts {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GroupChat returns a group's own messages in ascending order. Unlike the
// post feed, the intra-group chat is members-only even for connected
// groups.
func (e *Engine) GroupChat(groupID, userID string) ([]models.Message, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if !g.isMember(userID) {
		return nil, ErrNotAMember
	}

	var out []models.Message
	for _, m := range e.messages {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out, nil
}

// InterChat returns a channel's messages in ascending order to members of
// either side of the pair.
func (e *Engine) InterChat(channelID, userID string) ([]models.Message, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ch, ok := e.channels[channelID]
	if !ok {
		return nil, ErrChannelNotFound
	}
	if !e.userInPairLocked(userID, ch) {
		return nil, ErrNotAMember
	}

	var out []models.Message
	for _, m := range e.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out, nil
}

// CanReadGroup reports whether the user may subscribe to a group's change
// feed (members only).
func (e *Engine) CanReadGroup(groupID, userID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.groups[groupID]
	return ok && g.isMember(userID)
}

// CanReadChannel reports whether the user may subscribe to a channel's
// change feed.
func (e *Engine) CanReadChannel(channelID, userID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ch, ok := e.channels[channelID]
	return ok && e.userInPairLocked(userID, ch)
}

func (e *Engine) memberOfPeerLocked(g *groupState, userID string) bool {
	for peer := range g.connections {
		if pg, ok := e.groups[peer]; ok && pg.isMember(userID) {
			return true
		}
	}
	return false
}

func sortGroups(groups []models.Group) {
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
}

func sortMessages(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func sortChannels(chs []models.InterChannel) {
	sort.Slice(chs, func(i, j int) bool {
		if !chs[i].CreatedAt.Equal(chs[j].CreatedAt) {
			return chs[i].CreatedAt.Before(chs[j].CreatedAt)
		}
		return chs[i].ID < chs[j].ID
	})
}
